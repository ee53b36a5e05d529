// Package catalog holds the static, read-only set of adventure events.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Porkelson/dnd-project/internal/models"
)

//go:embed events.yaml
var defaultEvents []byte

// Catalog is an immutable, ordered list of events. It is safe to share
// between sessions.
type Catalog struct {
	events []models.AdventureEvent
	byID   map[string]int
}

// New validates events and builds a catalog from them.
func New(events []models.AdventureEvent) (*Catalog, error) {
	if err := Validate(events); err != nil {
		return nil, err
	}
	c := &Catalog{
		events: make([]models.AdventureEvent, len(events)),
		byID:   make(map[string]int, len(events)),
	}
	for i, ev := range events {
		c.events[i] = cloneEvent(ev)
		c.byID[ev.ID] = i
	}
	return c, nil
}

// Default returns the built-in events.
func Default() *Catalog {
	c, err := Parse(bytes.NewReader(defaultEvents))
	if err != nil {
		panic("catalog: built-in events are invalid: " + err.Error())
	}
	return c
}

// Load reads a YAML event file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML document with a top-level "events" list.
func Parse(r io.Reader) (*Catalog, error) {
	var doc struct {
		Events []models.AdventureEvent `yaml:"events"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog: decode yaml: %w", err)
	}
	return New(doc.Events)
}

// Validate checks every event and reports all problems at once.
func Validate(events []models.AdventureEvent) error {
	var errs []error
	if len(events) == 0 {
		errs = append(errs, errors.New("catalog: no events"))
	}
	seen := make(map[string]int, len(events))
	for i, ev := range events {
		prefix := fmt.Sprintf("events[%d]", i)
		if ev.ID == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if prev, ok := seen[ev.ID]; ok {
			errs = append(errs, fmt.Errorf("%s.id %q is a duplicate of events[%d]", prefix, ev.ID, prev))
		} else {
			seen[ev.ID] = i
		}
		if !ev.Category.IsValid() {
			errs = append(errs, fmt.Errorf("%s.category %q is invalid; valid values: exploration, combat, social, puzzle, treasure", prefix, ev.Category))
		}
		if len(ev.Choices) == 0 {
			errs = append(errs, fmt.Errorf("%s.choices must not be empty", prefix))
		}
		if ev.Prompt == "" {
			errs = append(errs, fmt.Errorf("%s.prompt is required", prefix))
		}
	}
	return errors.Join(errs...)
}

// ListAll returns every event in catalog order. The slice is a copy.
func (c *Catalog) ListAll() []models.AdventureEvent {
	out := make([]models.AdventureEvent, len(c.events))
	for i, ev := range c.events {
		out[i] = cloneEvent(ev)
	}
	return out
}

// Get looks an event up by id.
func (c *Catalog) Get(id string) (models.AdventureEvent, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.AdventureEvent{}, false
	}
	return cloneEvent(c.events[i]), true
}

// Len returns the number of events.
func (c *Catalog) Len() int { return len(c.events) }

func cloneEvent(ev models.AdventureEvent) models.AdventureEvent {
	choices := make([]string, len(ev.Choices))
	copy(choices, ev.Choices)
	ev.Choices = choices
	ev.Requires = ev.Requires.Clone()
	ev.Grants = ev.Grants.Clone()
	return ev
}
