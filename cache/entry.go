package cache

import (
	"container/list"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jonwraymond/scopectx/hierarchy"
)

// Dependency records one store record a resolution consumed, at the version
// it was read. The set of dependencies determines when a cached entry is
// stale.
type Dependency struct {
	Level   hierarchy.Level `json:"level"`
	ID      string          `json:"id"`
	Version int64           `json:"version"`
}

// Fingerprint computes the combined hash over a dependency set. The hash is
// order-independent: dependencies are sorted before hashing.
func Fingerprint(deps []Dependency) uint64 {
	sorted := make([]Dependency, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Level != sorted[j].Level {
			return sorted[i].Level < sorted[j].Level
		}
		return sorted[i].ID < sorted[j].ID
	})

	h := xxhash.New()
	for _, d := range sorted {
		fmt.Fprintf(h, "%d|%s|%d\n", int(d.Level), d.ID, d.Version)
	}
	return h.Sum64()
}

// entry is one live cache record. Payload bytes are immutable once stored;
// readers may hold them after the engine lock is released.
type entry struct {
	key        string
	payload    []byte
	compressed bool
	deps       []Dependency
	depsHash   uint64
	restored   bool

	createdAt time.Time
	expiresAt time.Time
	ttl       time.Duration
	lastHit   time.Time
	hitCount  int64
	size      int64

	elem *list.Element
}

// EntryInfo is read-only metadata about a cache entry, returned on hits.
type EntryInfo struct {
	Key        Key
	DepsHash   uint64
	Restored   bool
	Compressed bool
	HitCount   int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
	SizeBytes  int64
}

// CapacityError reports an entry too large to ever fit the budget. The engine
// skips caching and the surrounding read proceeds uncached.
type CapacityError struct {
	Key          Key
	SizeBytes    int64
	MaxSizeBytes int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("cache: entry %s is %d bytes, budget is %d", e.Key, e.SizeBytes, e.MaxSizeBytes)
}
