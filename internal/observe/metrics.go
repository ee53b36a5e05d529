// Package observe holds the OpenTelemetry metric instruments of the
// adventure engine.
//
// A package-level default [Metrics] ([DefaultMetrics]) uses the global
// meter provider, which is a no-op unless the binary installs one. Tests
// should use [NewMetrics] with their own [metric.MeterProvider].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Porkelson/dnd-project"

// Metrics holds all instruments. The OTel types handle their own locking.
type Metrics struct {
	// EventsPicked counts events drawn by the selector.
	// Attribute: category.
	EventsPicked metric.Int64Counter

	// EventsExhausted counts draws that found no eligible event.
	EventsExhausted metric.Int64Counter

	// ChoicesProcessed counts successful choice processing.
	// Attribute: category.
	ChoicesProcessed metric.Int64Counter

	// NarrationFallbacks counts descriptions replaced by the static prompt.
	// Attribute: reason ("error", "timeout" or "cancelled").
	NarrationFallbacks metric.Int64Counter

	// NarrationDuration tracks description provider latency.
	NarrationDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EventsPicked, err = m.Int64Counter("adventure.events.picked",
		metric.WithDescription("Events drawn for a player."),
	); err != nil {
		return nil, err
	}
	if met.EventsExhausted, err = m.Int64Counter("adventure.events.exhausted",
		metric.WithDescription("Draws that found no eligible event."),
	); err != nil {
		return nil, err
	}
	if met.ChoicesProcessed, err = m.Int64Counter("adventure.choices.processed",
		metric.WithDescription("Player choices applied to session state."),
	); err != nil {
		return nil, err
	}
	if met.NarrationFallbacks, err = m.Int64Counter("adventure.narration.fallbacks",
		metric.WithDescription("Descriptions replaced by the static event prompt."),
	); err != nil {
		return nil, err
	}
	if met.NarrationDuration, err = m.Float64Histogram("adventure.narration.duration",
		metric.WithDescription("Latency of description generation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the shared instance built from [otel.GetMeterProvider].
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordPick records the outcome of one selector draw. An empty category
// means nothing was eligible.
func (m *Metrics) RecordPick(ctx context.Context, category string) {
	if category == "" {
		m.EventsExhausted.Add(ctx, 1)
		return
	}
	m.EventsPicked.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// RecordChoice records one processed choice.
func (m *Metrics) RecordChoice(ctx context.Context, category string) {
	m.ChoicesProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// RecordNarration records provider latency and, when reason is non-empty,
// a fallback to the static prompt.
func (m *Metrics) RecordNarration(ctx context.Context, elapsed time.Duration, reason string) {
	m.NarrationDuration.Record(ctx, elapsed.Seconds())
	if reason != "" {
		m.NarrationFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}
