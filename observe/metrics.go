package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/scopectx/hierarchy"
)

// Metrics records context-service metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records one cache lookup and its outcome.
	RecordLookup(ctx context.Context, level hierarchy.Level, hit bool)

	// RecordResolve records one inheritance resolution with duration and
	// error status.
	RecordResolve(ctx context.Context, level hierarchy.Level, duration time.Duration, err error)

	// RecordPropagation records one propagation pass and the number of
	// entries it invalidated.
	RecordPropagation(ctx context.Context, level hierarchy.Level, invalidated int)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	lookups      metric.Int64Counter
	resolveTotal metric.Int64Counter
	resolveErrs  metric.Int64Counter
	resolveHist  metric.Float64Histogram
	invalidated  metric.Int64Counter
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookups, err := meter.Int64Counter(
		"context.cache.lookups",
		metric.WithDescription("Cache lookups by outcome"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	resolveTotal, err := meter.Int64Counter(
		"context.resolve.total",
		metric.WithDescription("Total inheritance resolutions"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, err
	}

	resolveErrs, err := meter.Int64Counter(
		"context.resolve.errors",
		metric.WithDescription("Failed inheritance resolutions"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	resolveHist, err := meter.Float64Histogram(
		"context.resolve.duration_ms",
		metric.WithDescription("Inheritance resolution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	invalidated, err := meter.Int64Counter(
		"context.propagation.invalidated",
		metric.WithDescription("Cache entries invalidated by propagation"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookups:      lookups,
		resolveTotal: resolveTotal,
		resolveErrs:  resolveErrs,
		resolveHist:  resolveHist,
		invalidated:  invalidated,
	}, nil
}

func levelAttr(level hierarchy.Level) attribute.KeyValue {
	return attribute.String("context.level", level.String())
}

func (m *metricsImpl) RecordLookup(ctx context.Context, level hierarchy.Level, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		levelAttr(level),
		attribute.String("context.cache.result", result),
	))
}

func (m *metricsImpl) RecordResolve(ctx context.Context, level hierarchy.Level, duration time.Duration, err error) {
	opt := metric.WithAttributes(levelAttr(level))

	m.resolveTotal.Add(ctx, 1, opt)
	if err != nil {
		m.resolveErrs.Add(ctx, 1, opt)
	}
	m.resolveHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordPropagation(ctx context.Context, level hierarchy.Level, invalidated int) {
	m.invalidated.Add(ctx, int64(invalidated), metric.WithAttributes(levelAttr(level)))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (noopMetrics) RecordLookup(context.Context, hierarchy.Level, bool)                     {}
func (noopMetrics) RecordResolve(context.Context, hierarchy.Level, time.Duration, error)   {}
func (noopMetrics) RecordPropagation(context.Context, hierarchy.Level, int)                {}

// NopMetrics returns a Metrics that discards everything.
func NopMetrics() Metrics { return noopMetrics{} }

// Ensure implementations satisfy Metrics
var (
	_ Metrics = (*metricsImpl)(nil)
	_ Metrics = noopMetrics{}
)
