package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/scopectx/cache"
	"github.com/jonwraymond/scopectx/hierarchy"
)

// ResolveFunc is the signature for inheritance resolution functions.
type ResolveFunc func(ctx context.Context, level hierarchy.Level, id, owner string) (*hierarchy.Resolved, []cache.Dependency, error)

// Middleware wraps resolution with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: WrapResolve() returns a thread-safe ResolveFunc.
//   - Context: propagates context through tracing spans.
//   - Errors: errors from the wrapped function are recorded and propagated
//     unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// WrapResolve wraps a ResolveFunc with tracing, metrics, and logging.
func (m *Middleware) WrapResolve(fn ResolveFunc) ResolveFunc {
	return func(ctx context.Context, level hierarchy.Level, id, owner string) (*hierarchy.Resolved, []cache.Dependency, error) {
		ctx, span := m.tracer.StartSpan(ctx, Op{Name: "resolve", Level: level, ID: id, Owner: owner})

		start := time.Now()
		res, deps, err := fn(ctx, level, id, owner)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordResolve(ctx, level, duration, err)

		logger := m.logger.WithComponent("resolver")
		fields := []Field{
			{Key: "level", Value: level.String()},
			{Key: "id", Value: id},
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "resolution failed", fields...)
		} else {
			fields = append(fields, Field{Key: "depth", Value: res.Depth})
			logger.Debug(ctx, "resolution completed", fields...)
		}

		return res, deps, err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
