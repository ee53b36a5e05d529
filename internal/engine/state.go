package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Porkelson/dnd-project/internal/models"
)

// Store owns the player state of one session. Every session gets its own
// Store; there is no shared instance. Methods are safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	state models.PlayerState
}

// NewStore returns a store holding the default starting state.
func NewStore() *Store {
	return &Store{state: models.NewPlayerState()}
}

// NewStoreFrom returns a store seeded with a copy of state, e.g. a loaded save.
func NewStoreFrom(state models.PlayerState) *Store {
	s := state.Clone()
	s.Stats = s.Stats.Normalize()
	return &Store{state: s}
}

// Snapshot returns an independent copy of the current state.
func (s *Store) Snapshot() models.PlayerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Tags returns a copy of the current tag set.
func (s *Store) Tags() models.TagSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Tags.Clone()
}

// AddTags unions tags into the state and returns how many were new.
func (s *Store) AddTags(tags ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.state.Tags)
	s.state.Tags = s.state.Tags.With(tags...)
	return len(s.state.Tags) - before
}

// RemoveTags drops tags from the state and returns how many were removed.
// No requirement check treats a missing tag as a condition; this exists for
// callers that retire progress flags explicitly.
func (s *Store) RemoveTags(tags ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.state.Tags)
	s.state.Tags = s.state.Tags.Without(tags...)
	return before - len(s.state.Tags)
}

// StatsPatch carries stat overrides. Nil fields are left alone.
type StatsPatch struct {
	Health     *int
	MaxHealth  *int
	Gold       *int
	Experience *int
	Level      *int
}

// MergeStats overwrites the stats set in p. The result is normalized, so
// health never leaves [0, MaxHealth].
func (s *Store) MergeStats(p StatsPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state.Stats
	if p.Health != nil {
		st.Health = *p.Health
	}
	if p.MaxHealth != nil {
		st.MaxHealth = *p.MaxHealth
	}
	if p.Gold != nil {
		st.Gold = *p.Gold
	}
	if p.Experience != nil {
		st.Experience = *p.Experience
	}
	if p.Level != nil {
		st.Level = *p.Level
	}
	s.state.Stats = st.Normalize()
}

// Apply applies effects in order. Either all effects are applied or, on the
// first invalid one, none are.
func (s *Store) Apply(effects ...models.Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	for i, eff := range effects {
		if err := applyEffect(&next, eff); err != nil {
			return fmt.Errorf("engine: effect %d: %w", i, err)
		}
	}
	next.Stats = next.Stats.Normalize()
	s.state = next
	return nil
}

// Reset puts the store back to the default starting state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = models.NewPlayerState()
}

func applyEffect(state *models.PlayerState, eff models.Effect) error {
	switch e := eff.(type) {
	case models.GrantTag:
		state.Tags = state.Tags.With(e.Tag)
	case models.RevokeTag:
		state.Tags = state.Tags.Without(e.Tag)
	case models.AddItem:
		if e.Item == "" {
			return errors.New("empty item")
		}
		state.Inventory = append(state.Inventory, e.Item)
	case models.StatDelta:
		switch e.Stat {
		case models.StatHealth:
			state.Stats.Health += e.Delta
		case models.StatMaxHealth:
			state.Stats.MaxHealth += e.Delta
		case models.StatGold:
			state.Stats.Gold += e.Delta
		case models.StatExperience:
			state.Stats.Experience += e.Delta
		case models.StatLevel:
			state.Stats.Level += e.Delta
		default:
			return fmt.Errorf("unknown stat %s", e.Stat)
		}
	default:
		return fmt.Errorf("unknown effect %T", eff)
	}
	return nil
}
