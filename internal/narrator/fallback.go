package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Porkelson/dnd-project/internal/models"
	"github.com/Porkelson/dnd-project/internal/resilience"
)

// ErrAllFailed is returned when every provider of a [Fallback] failed or had
// an open circuit breaker.
var ErrAllFailed = errors.New("narrator: all providers failed")

// Entry is one named provider of a [Fallback].
type Entry struct {
	Name     string
	Provider Provider
}

type fallbackEntry struct {
	Entry
	breaker *resilience.CircuitBreaker
}

// Fallback tries providers in order. Each has its own circuit breaker, so a
// backend that keeps failing is skipped until its breaker half-opens.
type Fallback struct {
	entries []fallbackEntry
}

// NewFallback builds a chain from entries, in order of preference.
func NewFallback(entries ...Entry) *Fallback {
	f := &Fallback{}
	for _, e := range entries {
		f.entries = append(f.entries, fallbackEntry{
			Entry:   e,
			breaker: resilience.New(resilience.Config{Name: "narrator/" + e.Name}),
		})
	}
	return f
}

// Generate implements Provider.
func (f *Fallback) Generate(ctx context.Context, event models.AdventureEvent, state models.PlayerState) (string, error) {
	lastErr := errors.New("no providers")
	for _, e := range f.entries {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		var text string
		err := e.breaker.Execute(func() error {
			var genErr error
			text, genErr = e.Provider.Generate(ctx, event, state)
			return genErr
		})
		if err == nil {
			return text, nil
		}
		lastErr = err
		if errors.Is(err, resilience.ErrCircuitOpen) {
			slog.Debug("skipping narrator (circuit open)", "provider", e.Name)
		} else {
			slog.Warn("narrator failed, trying next", "provider", e.Name, "err", err)
		}
	}
	return "", fmt.Errorf("%w: %v", ErrAllFailed, lastErr)
}

// Close closes every provider that holds resources.
func (f *Fallback) Close() error {
	var errs []error
	for _, e := range f.entries {
		if err := Close(e.Provider); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}
