package models

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// TagSet is a set of opaque progress tokens. Insertion order is kept for
// display only; no operation depends on it.
type TagSet []string

// NewTagSet builds a set from tags, dropping empty strings and duplicates.
func NewTagSet(tags ...string) TagSet {
	return TagSet{}.With(tags...)
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	return slices.Contains(s, tag)
}

// ContainsAll reports whether every tag of other is in s.
func (s TagSet) ContainsAll(other TagSet) bool {
	for _, t := range other {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

// With returns a new set holding s plus tags. Tags already present are skipped.
func (s TagSet) With(tags ...string) TagSet {
	out := s.Clone()
	for _, t := range tags {
		if t == "" || out.Has(t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Without returns a new set holding s minus tags.
func (s TagSet) Without(tags ...string) TagSet {
	out := make(TagSet, 0, len(s))
	for _, t := range s {
		if !slices.Contains(tags, t) {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a copy of s. A nil set clones to an empty one.
func (s TagSet) Clone() TagSet {
	out := make(TagSet, len(s))
	copy(out, s)
	return out
}

// UnmarshalYAML decodes a YAML list, dropping duplicates.
func (s *TagSet) UnmarshalYAML(node *yaml.Node) error {
	var raw []string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = NewTagSet(raw...)
	return nil
}
