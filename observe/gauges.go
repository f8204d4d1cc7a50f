package observe

import (
	"context"

	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/scopectx/cache"
)

// RegisterCacheGauges registers observable gauges that report the cache
// engine's live state on every metrics collection. stats is typically
// engine.Stats.
func RegisterCacheGauges(meter metric.Meter, stats func() cache.Stats) error {
	entryCount, err := meter.Int64ObservableGauge(
		"context.cache.entries",
		metric.WithDescription("Live cache entry count"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	sizeBytes, err := meter.Int64ObservableGauge(
		"context.cache.size_bytes",
		metric.WithDescription("Sum of live cache entry sizes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	evictions, err := meter.Int64ObservableCounter(
		"context.cache.evictions",
		metric.WithDescription("Entries evicted to respect the memory budget"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	expirations, err := meter.Int64ObservableCounter(
		"context.cache.expirations",
		metric.WithDescription("Entries removed after TTL expiry"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := stats()
		o.ObserveInt64(entryCount, int64(s.EntryCount))
		o.ObserveInt64(sizeBytes, s.CurrentSizeBytes)
		o.ObserveInt64(evictions, s.EvictionCount)
		o.ObserveInt64(expirations, s.ExpiredCount)
		return nil
	}, entryCount, sizeBytes, evictions, expirations)
	return err
}
