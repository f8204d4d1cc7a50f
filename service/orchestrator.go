package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/scopectx/cache"
	"github.com/jonwraymond/scopectx/hierarchy"
	"github.com/jonwraymond/scopectx/observe"
	"github.com/jonwraymond/scopectx/resolve"
	"github.com/jonwraymond/scopectx/store"
	"github.com/jonwraymond/scopectx/validate"
)

// Configuration errors.
var (
	ErrNilStore   = errors.New("service: store is required")
	ErrNilEngine  = errors.New("service: cache engine is required")
	ErrEmptyOwner = errors.New("service: owner scope is required")
)

// Config assembles the orchestrator's collaborators. Store, Engine, and Owner
// are required; the rest default to no-op implementations.
type Config struct {
	Store     store.Store
	Validator validate.Validator
	Engine    *cache.Engine
	Owner     string
	Logger    observe.Logger
	Metrics   observe.Metrics
}

// Orchestrator is the single entry point for context operations. It sequences
// validation, the store, the resolver, the cache, and propagation.
//
// Contract:
//   - Concurrency: safe for concurrent use. Concurrent inherited reads of the
//     same key collapse into one resolution.
//   - Context: every operation honors cancellation through the store boundary.
//   - Errors: expected conditions come back as Fault values inside results;
//     store failures are returned as errors, unwrapped and unretried.
type Orchestrator struct {
	store      store.Store
	validator  validate.Validator
	engine     *cache.Engine
	resolver   *resolve.Resolver
	propagator *resolve.Propagator
	logger     observe.Logger
	metrics    observe.Metrics
	owner      string

	// Shared across WithOwner copies so concurrent resolutions of the same
	// key collapse regardless of which handle issued them.
	group *singleflight.Group
}

// New creates an Orchestrator bound to the owner scope in cfg.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, ErrNilStore
	}
	if cfg.Engine == nil {
		return nil, ErrNilEngine
	}
	if cfg.Owner == "" {
		return nil, ErrEmptyOwner
	}
	if cfg.Validator == nil {
		cfg.Validator = validate.AcceptAll()
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.NopMetrics()
	}

	return &Orchestrator{
		store:      cfg.Store,
		validator:  cfg.Validator,
		engine:     cfg.Engine,
		resolver:   resolve.NewResolver(cfg.Store),
		propagator: resolve.NewPropagator(cfg.Engine),
		logger:     cfg.Logger.WithComponent("orchestrator"),
		metrics:    cfg.Metrics,
		owner:      cfg.Owner,
		group:      new(singleflight.Group),
	}, nil
}

// WithOwner returns a new Orchestrator bound to a different owner scope. The
// receiver is not modified; both handles share the same store, cache engine,
// and resolution collapsing.
func (o *Orchestrator) WithOwner(owner string) *Orchestrator {
	copied := *o
	copied.owner = owner
	return &copied
}

// Owner returns the owner scope this orchestrator is bound to.
func (o *Orchestrator) Owner() string {
	return o.owner
}

// GetContext reads the context at (level, id). With includeInherited false it
// passes through to the store and returns the raw record. With true it serves
// the merged view from cache, resolving and caching on a miss.
//
// A resolution that cannot be cached (entry over budget) still succeeds; the
// caller gets the freshly resolved view and the next read resolves again.
func (o *Orchestrator) GetContext(ctx context.Context, level hierarchy.Level, id string, includeInherited bool) (*GetResult, error) {
	if !includeInherited {
		rec, err := o.store.Find(ctx, level, id, o.owner)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &GetResult{Fault: notFound(level, id)}, nil
			}
			return nil, err
		}
		return &GetResult{Success: true, Context: rec}, nil
	}

	key := cache.Key{Level: level, ID: id, Owner: o.owner}

	if res, _, ok := o.engine.Get(ctx, key); ok {
		o.metrics.RecordLookup(ctx, level, true)
		return &GetResult{
			Success:  true,
			Resolved: res,
			Metadata: resolvedMetadata(res),
		}, nil
	}
	o.metrics.RecordLookup(ctx, level, false)

	res, err := o.resolveAndCache(ctx, key)
	if err != nil {
		var nf *resolve.NotFoundError
		if errors.As(err, &nf) {
			return &GetResult{Fault: notFound(nf.Level, nf.ID)}, nil
		}
		return nil, err
	}

	return &GetResult{
		Success:  true,
		Resolved: res,
		Metadata: resolvedMetadata(res),
	}, nil
}

// resolveAndCache runs one resolution for key, collapsed through singleflight,
// and caches the result. Put is attempted only after a fully successful
// resolution, so a failed or cancelled store call never leaves a partial
// entry behind. The cache generation is captured before the first store read;
// if a dependency is written while the resolution runs, the result is served
// to this caller but never cached, so a read after the write cannot see it.
func (o *Orchestrator) resolveAndCache(ctx context.Context, key cache.Key) (*hierarchy.Resolved, error) {
	v, err, _ := o.group.Do(key.String(), func() (any, error) {
		since := o.engine.Generation()
		start := time.Now()
		res, deps, err := o.resolver.Resolve(ctx, key.Level, key.ID, key.Owner)
		o.metrics.RecordResolve(ctx, key.Level, time.Since(start), err)
		if err != nil {
			return nil, err
		}

		if perr := o.engine.PutEntry(ctx, key, res, deps, cache.PutOptions{Since: since}); perr != nil {
			var capErr *cache.CapacityError
			switch {
			case errors.Is(perr, cache.ErrStaleResolution):
				o.logger.Debug(ctx, "resolution raced a write, serving uncached",
					observe.Field{Key: "key", Value: key.String()},
				)
			case errors.As(perr, &capErr):
				o.logger.Warn(ctx, "resolved view exceeds cache budget, serving uncached",
					observe.Field{Key: "key", Value: key.String()},
					observe.Field{Key: "size_bytes", Value: capErr.SizeBytes},
				)
			default:
				o.logger.Warn(ctx, "cache put failed, serving uncached",
					observe.Field{Key: "key", Value: key.String()},
					observe.Field{Key: "error", Value: perr.Error()},
				)
			}
		}
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*hierarchy.Resolved), nil
}

// CreateContext validates data and persists a new record at (level, id).
//
// When parentRef names a declared parent, that parent must exist at the next
// level up; creation is rejected otherwise. With no declared parent the
// record relies on derived ancestry and missing ancestors stay soft.
func (o *Orchestrator) CreateContext(ctx context.Context, level hierarchy.Level, id string, data map[string]hierarchy.Value, parentRef string) (*CreateResult, error) {
	if issues := o.validator.Validate(ctx, level, data); len(issues) > 0 {
		return &CreateResult{Fault: &Fault{
			Code:    FaultValidation,
			Message: fmt.Sprintf("%s context %q failed validation", level, id),
			Issues:  issues,
		}}, nil
	}

	if parentRef != "" {
		parentLevel, ok := level.Parent()
		if !ok {
			return &CreateResult{Fault: &Fault{
				Code:    FaultValidation,
				Message: "global contexts cannot declare a parent",
			}}, nil
		}
		if _, err := o.store.Find(ctx, parentLevel, parentRef, o.owner); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &CreateResult{Fault: &Fault{
					Code:    FaultParentNotFound,
					Message: fmt.Sprintf("declared parent %s %q does not exist", parentLevel, parentRef),
				}}, nil
			}
			return nil, err
		}
	}

	saved, err := o.store.Save(ctx, &hierarchy.Record{
		Level:    level,
		ID:       id,
		Owner:    o.owner,
		ParentID: parentRef,
		Data:     data,
	})
	if err != nil {
		return nil, err
	}

	// Covers delete-then-recreate, and wakes entries that resolved while
	// this record was soft-missing.
	o.engine.Invalidate(ctx, cache.Key{Level: level, ID: id, Owner: o.owner})
	o.engine.InvalidateDependents(ctx, level, id)

	o.logger.Info(ctx, "context created",
		observe.Field{Key: "level", Value: level.String()},
		observe.Field{Key: "id", Value: id},
	)

	return &CreateResult{
		Success:  true,
		Context:  saved,
		Metadata: Metadata{Created: true},
	}, nil
}

// UpdateContext applies patch to the record at (level, id) with shallow
// top-level-key overwrite semantics and persists the result. The record's own
// cache entry is always invalidated; with propagate true, every cached
// resolution that consumed this record is invalidated too and the count is
// reported.
func (o *Orchestrator) UpdateContext(ctx context.Context, level hierarchy.Level, id string, patch map[string]hierarchy.Value, propagate bool) (*UpdateResult, error) {
	existing, err := o.store.Find(ctx, level, id, o.owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &UpdateResult{Fault: notFound(level, id)}, nil
		}
		return nil, err
	}

	existing.Data = hierarchy.MergePatch(existing.Data, patch)
	saved, err := o.store.Save(ctx, existing)
	if err != nil {
		return nil, err
	}

	o.engine.Invalidate(ctx, cache.Key{Level: level, ID: id, Owner: o.owner})

	var invalidated int
	if propagate {
		changed := make([]string, 0, len(patch))
		for k := range patch {
			changed = append(changed, k)
		}
		invalidated = o.propagator.Propagate(ctx, level, id, changed)
		o.metrics.RecordPropagation(ctx, level, invalidated)
	}

	o.logger.Info(ctx, "context updated",
		observe.Field{Key: "level", Value: level.String()},
		observe.Field{Key: "id", Value: id},
		observe.Field{Key: "propagated", Value: invalidated},
	)

	return &UpdateResult{
		Success:  true,
		Context:  saved,
		Metadata: Metadata{Propagated: invalidated},
	}, nil
}

// DeleteContext removes the record at (level, id) and invalidates its cache
// entry plus, best effort, every cached resolution that depended on it.
// Cascading deletes of descendant records belong to the store's owner; only
// the cache side is handled here.
func (o *Orchestrator) DeleteContext(ctx context.Context, level hierarchy.Level, id string) (*DeleteResult, error) {
	deleted, err := o.store.Delete(ctx, level, id, o.owner)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return &DeleteResult{Fault: notFound(level, id)}, nil
	}

	o.engine.Invalidate(ctx, cache.Key{Level: level, ID: id, Owner: o.owner})
	invalidated := o.propagator.Propagate(ctx, level, id, nil)
	o.metrics.RecordPropagation(ctx, level, invalidated)

	o.logger.Info(ctx, "context deleted",
		observe.Field{Key: "level", Value: level.String()},
		observe.Field{Key: "id", Value: id},
	)

	return &DeleteResult{
		Success: true,
		Message: fmt.Sprintf("%s context %q deleted", level, id),
	}, nil
}

// ListContexts returns the records at a level within the owner scope.
func (o *Orchestrator) ListContexts(ctx context.Context, level hierarchy.Level, filter store.Filter) (*ListResult, error) {
	recs, err := o.store.List(ctx, level, o.owner, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Success: true, Contexts: recs}, nil
}

// CacheStats returns a snapshot of the cache engine's counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.engine.Stats()
}

func notFound(level hierarchy.Level, id string) *Fault {
	return &Fault{
		Code:    FaultNotFound,
		Message: fmt.Sprintf("%s context %q not found", level, id),
	}
}

func resolvedMetadata(res *hierarchy.Resolved) Metadata {
	return Metadata{
		InheritanceChain: res.Chain,
		InheritanceDepth: res.Depth,
		ResolvedAt:       res.ResolvedAt,
		Inherited:        true,
	}
}
