package engine

import "github.com/Porkelson/dnd-project/internal/models"

// IsEligible reports whether tags satisfy requires: every required tag must
// be present. An empty requirement set is always satisfied.
func IsEligible(requires, tags models.TagSet) bool {
	return tags.ContainsAll(requires)
}
