// Package cache implements the resolved-context cache engine.
//
// The Engine stores resolved context views keyed by (level, id, owner scope)
// under a fixed byte budget. Entries expire by TTL (optionally extended per
// hit up to a capped factor), are evicted least-recently-used first when the
// budget is reached, and can be invalidated singly, by glob pattern, or by
// the dependency records their resolution consumed. Invalidations advance a
// generation counter that lets callers reject inserts whose resolution raced
// a write. Payloads above a
// threshold are transparently compressed, and the unexpired entry set can be
// snapshotted to disk to pre-warm a cold start.
package cache
