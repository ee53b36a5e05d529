// Package engine runs one player's adventure session: it gates events behind
// progress tags, draws the next event and turns a player's choice into state
// changes plus a narrated outcome.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Porkelson/dnd-project/internal/catalog"
	"github.com/Porkelson/dnd-project/internal/models"
	"github.com/Porkelson/dnd-project/internal/narrator"
	"github.com/Porkelson/dnd-project/internal/observe"
)

// Engine is a single-player session. Create one per session; engines share
// nothing but the read-only catalog and the narrator.
type Engine struct {
	catalog   *catalog.Catalog
	store     *Store
	selector  *Selector
	describer Describer
	metrics   *observe.Metrics
	logger    *slog.Logger
}

type options struct {
	seed    uint64
	hasSeed bool
	timeout time.Duration
	state   *models.PlayerState
	metrics *observe.Metrics
	logger  *slog.Logger
}

// Option configures [New].
type Option func(*options)

// WithSeed fixes the selector's random source.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.hasSeed = true
	}
}

// WithTimeout bounds each narration request. Default: [DefaultNarrationTimeout].
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithState starts the session from state instead of the default.
func WithState(state models.PlayerState) Option {
	return func(o *options) {
		o.state = &state
	}
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLogger logs to l instead of [slog.Default].
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New creates a session over cat, narrated by prov.
func New(cat *catalog.Catalog, prov narrator.Provider, opts ...Option) (*Engine, error) {
	if cat == nil {
		return nil, errors.New("engine: catalog must not be nil")
	}
	if prov == nil {
		return nil, errors.New("engine: narrator must not be nil")
	}

	o := &options{timeout: DefaultNarrationTimeout}
	for _, opt := range opts {
		opt(o)
	}
	if !o.hasSeed {
		seed, err := NewSeed()
		if err != nil {
			return nil, err
		}
		o.seed = seed
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	store := NewStore()
	if o.state != nil {
		store = NewStoreFrom(*o.state)
	}

	return &Engine{
		catalog:  cat,
		store:    store,
		selector: NewSelector(o.seed),
		describer: Describer{
			Provider: prov,
			Timeout:  o.timeout,
			Metrics:  o.metrics,
			Logger:   o.logger,
		},
		metrics: o.metrics,
		logger:  o.logger,
	}, nil
}

// PlayerState returns a snapshot of the session state. Changing it does not
// affect the session.
func (e *Engine) PlayerState() models.PlayerState {
	return e.store.Snapshot()
}

// Catalog returns the event catalog.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Eligible lists the events the player can currently encounter.
func (e *Engine) Eligible() []models.AdventureEvent {
	return ListEligible(e.catalog.ListAll(), e.store.Tags())
}

// PickRandom draws the next event. It reports false once nothing is
// eligible, meaning the player has explored everything.
func (e *Engine) PickRandom(ctx context.Context) (models.AdventureEvent, bool) {
	ev, ok := e.selector.PickRandom(e.catalog.ListAll(), e.store.Tags())
	if !ok {
		e.metrics.RecordPick(ctx, "")
		e.logger.Info("no eligible events left")
		return ev, false
	}
	e.metrics.RecordPick(ctx, string(ev.Category))
	e.logger.Debug("event picked", "event_id", ev.ID)
	return ev, true
}

// Describe narrates event for the current state. It falls back to the
// event's prompt instead of failing.
func (e *Engine) Describe(ctx context.Context, event models.AdventureEvent) string {
	return e.describer.Describe(ctx, event, e.store.Snapshot())
}

// Process applies the player's choice on event and returns the outcome.
// See [Process].
func (e *Engine) Process(ctx context.Context, event models.AdventureEvent, choiceIndex int) (models.EventOutcome, error) {
	out, err := Process(ctx, event, choiceIndex, e.store, e.describer)
	if err != nil {
		return out, err
	}
	e.metrics.RecordChoice(ctx, string(event.Category))
	e.logger.Debug("choice processed", "event_id", event.ID, "choice", event.Choices[choiceIndex])
	return out, nil
}

// ResolveFollowUp records a follow-up choice taken from an outcome.
func (e *Engine) ResolveFollowUp(choice models.EventChoice) error {
	return ResolveFollowUp(choice, e.store)
}

// Apply applies typed effects to the session state.
func (e *Engine) Apply(effects ...models.Effect) error {
	return e.store.Apply(effects...)
}

// MergeStats overwrites individual stats.
func (e *Engine) MergeStats(p StatsPatch) {
	e.store.MergeStats(p)
}

// Reset starts the session over from the default state.
func (e *Engine) Reset() {
	e.store.Reset()
}
