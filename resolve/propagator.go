package resolve

import (
	"context"

	"github.com/jonwraymond/scopectx/cache"
	"github.com/jonwraymond/scopectx/hierarchy"
)

// Propagator invalidates cached resolutions after a successful write. It
// never recomputes; the next read re-resolves lazily.
type Propagator struct {
	engine *cache.Engine
}

// NewPropagator creates a propagator over the given cache engine.
func NewPropagator(engine *cache.Engine) *Propagator {
	return &Propagator{engine: engine}
}

// Propagate removes every cache entry whose resolution consumed the record
// (level, id) and returns the count removed. changedKeys is advisory:
// tracking is per-record, so any write to the record invalidates all of its
// dependents regardless of which keys changed.
//
// Exact invalidation uses the engine's dependency index. Entries without
// dependency records (restored from snapshots written without them) are
// invisible to the index; while any exist the propagator falls back to
// coarse invalidation, dropping the written record's own entries and every
// entry at deeper levels.
func (p *Propagator) Propagate(ctx context.Context, level hierarchy.Level, id string, changedKeys []string) int {
	_ = changedKeys

	count := p.engine.InvalidateDependents(ctx, level, id)

	if p.engine.HasUnindexed() {
		count += p.engine.InvalidatePattern(ctx, "ctx:*:"+level.String()+":"+id)
		for _, deeper := range hierarchy.Levels {
			if deeper.Below(level) {
				count += p.engine.InvalidatePattern(ctx, "ctx:*:"+deeper.String()+":*")
			}
		}
	}

	return count
}
