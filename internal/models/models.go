package models

import "fmt"

// Category classifies an adventure event.
type Category string

const (
	CategoryExploration Category = "exploration"
	CategoryCombat      Category = "combat"
	CategorySocial      Category = "social"
	CategoryPuzzle      Category = "puzzle"
	CategoryTreasure    Category = "treasure"
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryExploration, CategoryCombat, CategorySocial, CategoryPuzzle, CategoryTreasure:
		return true
	}
	return false
}

// AdventureEvent is a static event definition loaded with the catalog.
type AdventureEvent struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Category Category `yaml:"category"`
	Choices  []string `yaml:"choices"` // index-addressed
	Requires TagSet   `yaml:"requires"`
	Grants   TagSet   `yaml:"grants"`
	Prompt   string   `yaml:"prompt"` // also the static narration fallback
}

// Stats holds the numeric character record.
type Stats struct {
	Health     int `yaml:"health" json:"health"`
	MaxHealth  int `yaml:"max_health" json:"max_health"`
	Gold       int `yaml:"gold" json:"gold"`
	Experience int `yaml:"experience" json:"experience"`
	Level      int `yaml:"level" json:"level"`
}

// Normalize floors every stat at its minimum and clamps health to [0, MaxHealth].
func (s Stats) Normalize() Stats {
	if s.MaxHealth < 1 {
		s.MaxHealth = 1
	}
	s.Health = min(max(s.Health, 0), s.MaxHealth)
	s.Gold = max(s.Gold, 0)
	s.Experience = max(s.Experience, 0)
	s.Level = max(s.Level, 1)
	return s
}

// PlayerState is the mutable progression state of one session.
type PlayerState struct {
	Tags      TagSet   `yaml:"tags"`
	Inventory []string `yaml:"inventory"`
	Stats     Stats    `yaml:"stats"`
}

// NewPlayerState returns the state every new session starts from.
func NewPlayerState() PlayerState {
	return PlayerState{
		Tags:      TagSet{},
		Inventory: []string{},
		Stats: Stats{
			Health:    100,
			MaxHealth: 100,
			Level:     1,
		},
	}
}

// Clone returns a deep copy of s.
func (s PlayerState) Clone() PlayerState {
	inv := make([]string, len(s.Inventory))
	copy(inv, s.Inventory)
	return PlayerState{
		Tags:      s.Tags.Clone(),
		Inventory: inv,
		Stats:     s.Stats,
	}
}

// EventChoice is a follow-up option presented with an outcome.
type EventChoice struct {
	Text     string `yaml:"text"`
	Outcome  string `yaml:"outcome"`
	Requires TagSet `yaml:"requires,omitempty"`
	Grants   TagSet `yaml:"grants,omitempty"`
}

// EventOutcome is the result of processing a player's choice.
type EventOutcome struct {
	Description string        `yaml:"description"`
	Choices     []EventChoice `yaml:"choices"` // never empty, Choices[0] is "Continue"
}

// StatKind names one field of Stats.
type StatKind int

const (
	StatHealth StatKind = iota
	StatMaxHealth
	StatGold
	StatExperience
	StatLevel
)

func (k StatKind) String() string {
	switch k {
	case StatHealth:
		return "health"
	case StatMaxHealth:
		return "max_health"
	case StatGold:
		return "gold"
	case StatExperience:
		return "experience"
	case StatLevel:
		return "level"
	default:
		return fmt.Sprintf("stat(%d)", int(k))
	}
}

// Effect is a single state mutation. The set of implementations is closed:
// GrantTag, RevokeTag, AddItem and StatDelta.
type Effect interface {
	effect()
}

// GrantTag adds a progress tag.
type GrantTag struct{ Tag string }

// RevokeTag removes a progress tag.
type RevokeTag struct{ Tag string }

// AddItem appends an item identifier to the inventory.
type AddItem struct{ Item string }

// StatDelta adds Delta to one stat.
type StatDelta struct {
	Stat  StatKind
	Delta int
}

func (GrantTag) effect()  {}
func (RevokeTag) effect() {}
func (AddItem) effect()   {}
func (StatDelta) effect() {}

// GrantEffects converts a set of granted tags into effects.
func GrantEffects(tags TagSet) []Effect {
	effects := make([]Effect, 0, len(tags))
	for _, t := range tags {
		effects = append(effects, GrantTag{Tag: t})
	}
	return effects
}
