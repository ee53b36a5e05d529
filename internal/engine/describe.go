package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Porkelson/dnd-project/internal/models"
	"github.com/Porkelson/dnd-project/internal/narrator"
	"github.com/Porkelson/dnd-project/internal/observe"
)

// DefaultNarrationTimeout bounds a single description request.
const DefaultNarrationTimeout = 10 * time.Second

// Fallback reasons recorded in metrics and logs.
const (
	reasonError     = "error"
	reasonTimeout   = "timeout"
	reasonCancelled = "cancelled"
)

// Describer asks a narrator for event text and substitutes the event's
// static prompt when the narrator fails, returns nothing or runs past
// Timeout. It never returns an error.
type Describer struct {
	Provider narrator.Provider
	Timeout  time.Duration
	Metrics  *observe.Metrics
	Logger   *slog.Logger
}

// Describe returns narrative text for event as seen by a player in state.
func (d Describer) Describe(ctx context.Context, event models.AdventureEvent, state models.PlayerState) string {
	start := time.Now()
	text, reason, err := d.generate(ctx, event, state)
	if d.Metrics != nil {
		d.Metrics.RecordNarration(ctx, time.Since(start), reason)
	}
	if reason == "" {
		return text
	}
	if d.Logger != nil {
		d.Logger.Warn("narration fell back to static prompt",
			"event_id", event.ID, "reason", reason, "err", err)
	}
	return event.Prompt
}

func (d Describer) generate(ctx context.Context, event models.AdventureEvent, state models.PlayerState) (string, string, error) {
	if d.Provider == nil {
		return "", reasonError, errors.New("no narrator configured")
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultNarrationTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	// Buffered so a provider that ignores ctx can finish without leaking.
	done := make(chan result, 1)
	go func() {
		text, err := d.Provider.Generate(ctx, event, state)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return "", reasonError, r.err
		}
		if strings.TrimSpace(r.text) == "" {
			return "", reasonError, errors.New("empty description")
		}
		return r.text, "", nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", reasonTimeout, ctx.Err()
		}
		return "", reasonCancelled, ctx.Err()
	}
}
