package resolve

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/scopectx/cache"
	"github.com/jonwraymond/scopectx/hierarchy"
	"github.com/jonwraymond/scopectx/store"
)

// NotFoundError indicates the requested leaf record is absent. It is never
// returned for a missing ancestor; those contribute nothing and resolution
// continues.
type NotFoundError struct {
	Level hierarchy.Level
	ID    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("resolve: %s record %q not found", e.Level, e.ID)
}

// Resolver computes merged context views from the record store.
//
// Contract:
//   - Concurrency: safe for concurrent use; the resolver holds no mutable
//     state of its own.
//   - Errors: *NotFoundError when the requested record is absent; store
//     failures are propagated unchanged, never retried.
type Resolver struct {
	store store.Store
}

// NewResolver creates a resolver over the given store.
func NewResolver(s store.Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve walks the ancestor chain for (level, id) in the owner scope and
// returns the merged view plus the dependency set consumed.
//
// Only the requested record itself must exist. Missing ancestors are soft:
// they contribute no keys and the walk continues toward GLOBAL. A missing
// ancestor whose id is known is still recorded as a version-zero dependency,
// so creating it later invalidates this resolution.
func (r *Resolver) Resolve(ctx context.Context, level hierarchy.Level, id, owner string) (*hierarchy.Resolved, []cache.Dependency, error) {
	leaf, err := r.store.Find(ctx, level, id, owner)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, &NotFoundError{Level: level, ID: id}
		}
		return nil, nil, err
	}

	found := []*hierarchy.Record{leaf}
	deps := []cache.Dependency{{Level: level, ID: id, Version: leaf.Version}}

	cur := leaf
	for cur.Level > hierarchy.LevelGlobal {
		parentLevel, _ := cur.Level.Parent()
		parentID := cur.ParentID
		if parentID == "" && parentLevel == hierarchy.LevelGlobal {
			// The owner's GLOBAL record is always derivable; its id
			// defaults to the owner scope itself.
			parentID = owner
		}
		if parentID == "" {
			// No declared parent at this level. Skip toward the one
			// ancestor that is always derivable.
			cur = &hierarchy.Record{Level: parentLevel, Owner: owner}
			continue
		}

		parent, err := r.store.Find(ctx, parentLevel, parentID, owner)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				deps = append(deps, cache.Dependency{Level: parentLevel, ID: parentID})
				cur = &hierarchy.Record{Level: parentLevel, ID: parentID, Owner: owner}
				continue
			}
			return nil, nil, err
		}

		found = append(found, parent)
		deps = append(deps, cache.Dependency{Level: parentLevel, ID: parentID, Version: parent.Version})
		cur = parent
	}

	// found was collected leaf upward; merge wants root to leaf.
	chain := &hierarchy.Chain{
		Records:     make([]*hierarchy.Record, len(found)),
		LevelsFound: make([]hierarchy.Level, len(found)),
		Depth:       len(found),
		ResolvedAt:  time.Now().UTC(),
	}
	for i, rec := range found {
		j := len(found) - 1 - i
		chain.Records[j] = rec
		chain.LevelsFound[j] = rec.Level
	}

	return &hierarchy.Resolved{
		Data:       hierarchy.MergeChain(chain),
		Chain:      chain.LevelsFound,
		Depth:      chain.Depth,
		ResolvedAt: chain.ResolvedAt,
	}, deps, nil
}
