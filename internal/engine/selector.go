package engine

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/Porkelson/dnd-project/internal/models"
)

// ListEligible returns the events whose requirements tags satisfy, in
// catalog order.
func ListEligible(events []models.AdventureEvent, tags models.TagSet) []models.AdventureEvent {
	var out []models.AdventureEvent
	for _, ev := range events {
		if IsEligible(ev.Requires, tags) {
			out = append(out, ev)
		}
	}
	return out
}

// Selector draws eligible events uniformly at random from its own source.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a selector whose draws are fully determined by seed.
func NewSelector(seed uint64) *Selector {
	return &Selector{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// PickRandom draws one eligible event. It reports false, not an error, when
// nothing is eligible.
func (s *Selector) PickRandom(events []models.AdventureEvent, tags models.TagSet) (models.AdventureEvent, bool) {
	eligible := ListEligible(events, tags)
	if len(eligible) == 0 {
		return models.AdventureEvent{}, false
	}
	s.mu.Lock()
	i := s.rng.IntN(len(eligible))
	s.mu.Unlock()
	return eligible[i], true
}

// NewSeed returns a seed read from crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}
