package cache

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonwraymond/scopectx/hierarchy"
)

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	HitCount          int64 `json:"hit_count"`
	MissCount         int64 `json:"miss_count"`
	EvictionCount     int64 `json:"eviction_count"`
	ExpiredCount      int64 `json:"expired_count"`
	InvalidationCount int64 `json:"invalidation_count"`
	EntryCount        int   `json:"entry_count"`
	CurrentSizeBytes  int64 `json:"current_size_bytes"`
	MaxSizeBytes      int64 `json:"max_size_bytes"`
}

type depRef struct {
	level hierarchy.Level
	id    string
}

// Engine is the resolved-context cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. All mutation happens under the
//     engine's own lock; entries are whole-value blobs, so readers never
//     observe a torn entry.
//   - Budget: the sum of entry sizes never exceeds MaxSizeBytes; the budget
//     is enforced before every insert by evicting least-recently-used
//     entries, ordered by last hit time.
//   - Errors: Get never errors; Put returns *CapacityError for entries that
//     can never fit, which callers treat as skip-and-continue.
type Engine struct {
	cfg   Config
	codec *codec

	mu        sync.Mutex
	entries   map[string]*entry
	lru       *list.List // front = most recently used
	depIndex  map[depRef]map[string]struct{}
	unindexed int
	curSize   int64

	// gen advances on every invalidation event; depGen records the
	// generation at which each (level, id) was last invalidated, and
	// wipeGen the generation of the last whole-cache invalidation. Puts
	// carrying a Since generation are rejected when any of their
	// dependencies was invalidated after it.
	gen     uint64
	depGen  map[depRef]uint64
	wipeGen uint64

	hits          int64
	misses        int64
	evictions     int64
	expirations   int64
	invalidations int64

	janitorStop chan struct{}
	janitorDone chan struct{}

	// now is swappable for tests.
	now func() time.Time
}

// New creates an engine with the given configuration. Zero config fields take
// documented defaults.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()

	codec, err := newCodec()
	if err != nil {
		return nil, fmt.Errorf("cache: init codec: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		codec:    codec,
		entries:  make(map[string]*entry),
		lru:      list.New(),
		depIndex: make(map[depRef]map[string]struct{}),
		gen:      1,
		depGen:   make(map[depRef]uint64),
		now:      time.Now,
	}, nil
}

// Get retrieves a cached resolution. An expired entry is a miss and is
// removed. Hits refresh the LRU position, bump the hit count and, under
// adaptive TTL, may extend the entry's expiry.
func (e *Engine) Get(_ context.Context, key Key) (*hierarchy.Resolved, *EntryInfo, bool) {
	ks := key.String()

	e.mu.Lock()
	ent, ok := e.entries[ks]
	if !ok {
		e.misses++
		e.mu.Unlock()
		return nil, nil, false
	}

	now := e.now()
	if now.After(ent.expiresAt) {
		e.removeLocked(ent)
		e.expirations++
		e.misses++
		e.mu.Unlock()
		return nil, nil, false
	}

	e.hits++
	ent.hitCount++
	ent.lastHit = now
	e.lru.MoveToFront(ent.elem)
	if e.cfg.AdaptiveTTL {
		ent.expiresAt = e.cfg.extendExpiry(ent.createdAt, ent.expiresAt, ent.ttl)
	}

	payload := ent.payload
	compressed := ent.compressed
	info := &EntryInfo{
		Key:        key,
		DepsHash:   ent.depsHash,
		Restored:   ent.restored,
		Compressed: ent.compressed,
		HitCount:   ent.hitCount,
		CreatedAt:  ent.createdAt,
		ExpiresAt:  ent.expiresAt,
		SizeBytes:  ent.size,
	}
	e.mu.Unlock()

	// Decode outside the lock; payload slices are immutable once stored.
	res, err := e.decodePayload(payload, compressed)
	if err != nil {
		// Corrupt entry. Drop it and report a miss.
		e.mu.Lock()
		if cur, ok := e.entries[ks]; ok {
			e.removeLocked(cur)
			e.invalidations++
		}
		e.misses++
		e.hits--
		e.mu.Unlock()
		return nil, nil, false
	}
	return res, info, true
}

// PutOptions adjusts a single insert.
type PutOptions struct {
	// TTL requests a lifetime other than DefaultTTL for this entry. It is
	// clamped to MaxTTL; zero means DefaultTTL.
	TTL time.Duration

	// Since, when non-zero, is a generation captured with Generation before
	// the resolution that produced this entry began reading. The insert is
	// rejected with ErrStaleResolution if any of the entry's dependencies
	// was invalidated after that generation, so a resolution that raced a
	// write is never cached.
	Since uint64
}

// Put stores a resolution together with the dependency set that produced it.
// Returns *CapacityError if the encoded entry exceeds the whole budget;
// partial entries are never stored.
func (e *Engine) Put(ctx context.Context, key Key, res *hierarchy.Resolved, deps []Dependency) error {
	return e.PutEntry(ctx, key, res, deps, PutOptions{})
}

// PutEntry is Put with per-insert options.
func (e *Engine) PutEntry(_ context.Context, key Key, res *hierarchy.Resolved, deps []Dependency, opts PutOptions) error {
	if res == nil {
		return ErrNilResolved
	}
	if err := key.Validate(); err != nil {
		return err
	}

	payload, compressed, err := e.encodePayload(res)
	if err != nil {
		return fmt.Errorf("cache: encode payload: %w", err)
	}

	size := int64(len(payload))
	if size > e.cfg.MaxSizeBytes {
		return &CapacityError{Key: key, SizeBytes: size, MaxSizeBytes: e.cfg.MaxSizeBytes}
	}

	ks := key.String()
	now := e.now()
	ttl := e.cfg.effectiveTTL(opts.TTL)
	ent := &entry{
		key:        ks,
		payload:    payload,
		compressed: compressed,
		deps:       deps,
		depsHash:   Fingerprint(deps),
		createdAt:  now,
		expiresAt:  now.Add(ttl),
		ttl:        ttl,
		lastHit:    now,
		size:       size,
	}

	e.mu.Lock()
	if opts.Since != 0 && e.staleSinceLocked(opts.Since, deps) {
		e.mu.Unlock()
		return ErrStaleResolution
	}
	if prev, ok := e.entries[ks]; ok {
		e.removeLocked(prev)
	}
	// Budget is enforced before the insert.
	for e.curSize+size > e.cfg.MaxSizeBytes {
		oldest := e.lru.Back()
		if oldest == nil {
			break
		}
		e.removeLocked(oldest.Value.(*entry))
		e.evictions++
	}
	ent.elem = e.lru.PushFront(ent)
	e.entries[ks] = ent
	e.curSize += size
	e.indexLocked(ent)
	e.mu.Unlock()

	return nil
}

// Generation returns the engine's current invalidation generation. Capture it
// before a resolution starts reading and pass it to PutEntry as Since; the
// insert then fails if any dependency was written in between.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen
}

// staleSinceLocked reports whether any dependency was invalidated after the
// given generation. Caller holds e.mu.
func (e *Engine) staleSinceLocked(since uint64, deps []Dependency) bool {
	if e.wipeGen > since {
		return true
	}
	for _, d := range deps {
		if e.depGen[depRef{level: d.Level, id: d.ID}] > since {
			return true
		}
	}
	return false
}

// maxGenerationRefs bounds the per-record generation table.
const maxGenerationRefs = 1 << 16

// markInvalidatedLocked records that (level, id) was invalidated at a fresh
// generation. Caller holds e.mu.
func (e *Engine) markInvalidatedLocked(ref depRef) {
	e.gen++
	if len(e.depGen) >= maxGenerationRefs {
		// Forget per-record history and treat everything resolved before
		// this point as stale.
		e.depGen = make(map[depRef]uint64)
		e.wipeGen = e.gen
		return
	}
	e.depGen[ref] = e.gen
}

// Invalidate removes a single entry and records the invalidation so that
// in-flight resolutions depending on (key.Level, key.ID) are not cached.
// Returns false if no entry was present.
func (e *Engine) Invalidate(_ context.Context, key Key) bool {
	ks := key.String()

	e.mu.Lock()
	defer e.mu.Unlock()

	e.markInvalidatedLocked(depRef{level: key.Level, id: key.ID})
	ent, ok := e.entries[ks]
	if !ok {
		return false
	}
	e.removeLocked(ent)
	e.invalidations++
	return true
}

// InvalidatePattern removes every entry whose key matches the glob pattern
// and returns the count removed.
func (e *Engine) InvalidatePattern(_ context.Context, pattern string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A pattern cannot be mapped back to dependency records, so it acts as
	// a barrier for every in-flight resolution.
	e.gen++
	e.wipeGen = e.gen

	var victims []*entry
	for ks, ent := range e.entries {
		if MatchPattern(pattern, ks) {
			victims = append(victims, ent)
		}
	}
	for _, ent := range victims {
		e.removeLocked(ent)
		e.invalidations++
	}
	return len(victims)
}

// InvalidateDependents removes every entry whose resolution consumed the
// record (level, id), regardless of which version it saw, and records the
// invalidation even when no dependents are currently cached. Returns the
// count removed.
func (e *Engine) InvalidateDependents(_ context.Context, level hierarchy.Level, id string) int {
	ref := depRef{level: level, id: id}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.markInvalidatedLocked(ref)
	keys, ok := e.depIndex[ref]
	if !ok {
		return 0
	}
	count := 0
	for ks := range keys {
		if ent, live := e.entries[ks]; live {
			e.removeLocked(ent)
			e.invalidations++
			count++
		}
	}
	return count
}

// HasUnindexed reports whether any live entry lacks dependency records and so
// is invisible to InvalidateDependents. Such entries come from snapshots
// written without dependency data; propagation falls back to coarse pattern
// invalidation while any exist.
func (e *Engine) HasUnindexed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unindexed > 0
}

// Clear removes all entries. Counters other than entry count and size are
// retained.
func (e *Engine) Clear(_ context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.entries = make(map[string]*entry)
	e.lru.Init()
	e.depIndex = make(map[depRef]map[string]struct{})
	e.curSize = 0
	e.unindexed = 0
	e.gen++
	e.wipeGen = e.gen
	e.depGen = make(map[depRef]uint64)
}

// Stats returns a snapshot of engine counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Stats{
		HitCount:          e.hits,
		MissCount:         e.misses,
		EvictionCount:     e.evictions,
		ExpiredCount:      e.expirations,
		InvalidationCount: e.invalidations,
		EntryCount:        len(e.entries),
		CurrentSizeBytes:  e.curSize,
		MaxSizeBytes:      e.cfg.MaxSizeBytes,
	}
}

// CleanupExpired removes all expired entries eagerly and returns the count
// removed. Expiry is otherwise lazy, on Get.
func (e *Engine) CleanupExpired() int {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var victims []*entry
	for _, ent := range e.entries {
		if now.After(ent.expiresAt) {
			victims = append(victims, ent)
		}
	}
	for _, ent := range victims {
		e.removeLocked(ent)
		e.expirations++
	}
	return len(victims)
}

// removeLocked unlinks an entry from the map, LRU list, dependency index, and
// size accounting. Caller holds e.mu.
func (e *Engine) removeLocked(ent *entry) {
	delete(e.entries, ent.key)
	if ent.elem != nil {
		e.lru.Remove(ent.elem)
		ent.elem = nil
	}
	e.curSize -= ent.size
	if len(ent.deps) == 0 {
		if e.unindexed > 0 {
			e.unindexed--
		}
	}
	for _, d := range ent.deps {
		ref := depRef{level: d.Level, id: d.ID}
		if set, ok := e.depIndex[ref]; ok {
			delete(set, ent.key)
			if len(set) == 0 {
				delete(e.depIndex, ref)
			}
		}
	}
}

// indexLocked registers an entry's dependencies. Caller holds e.mu.
func (e *Engine) indexLocked(ent *entry) {
	if len(ent.deps) == 0 {
		e.unindexed++
		return
	}
	for _, d := range ent.deps {
		ref := depRef{level: d.Level, id: d.ID}
		set, ok := e.depIndex[ref]
		if !ok {
			set = make(map[string]struct{})
			e.depIndex[ref] = set
		}
		set[ent.key] = struct{}{}
	}
}

func (e *Engine) encodePayload(res *hierarchy.Resolved) ([]byte, bool, error) {
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, false, err
	}
	if e.cfg.CompressThreshold > 0 && len(raw) > e.cfg.CompressThreshold {
		return e.codec.compress(raw), true, nil
	}
	return raw, false, nil
}

func (e *Engine) decodePayload(payload []byte, compressed bool) (*hierarchy.Resolved, error) {
	raw := payload
	if compressed {
		var err error
		raw, err = e.codec.decompress(payload)
		if err != nil {
			return nil, err
		}
	}
	var res hierarchy.Resolved
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
