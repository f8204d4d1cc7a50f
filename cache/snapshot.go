package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/jonwraymond/scopectx/hierarchy"
)

// snapshotFormatVersion is bumped on incompatible snapshot layout changes.
const snapshotFormatVersion = 1

// ErrSnapshotVersion indicates a snapshot written by an incompatible engine.
var ErrSnapshotVersion = errors.New("cache: unsupported snapshot version")

type snapshotFile struct {
	Version   int             `cbor:"1,keyasint"`
	CreatedAt time.Time       `cbor:"2,keyasint"`
	Entries   []snapshotEntry `cbor:"3,keyasint"`
}

type snapshotEntry struct {
	Key        string        `cbor:"1,keyasint"`
	Payload    []byte        `cbor:"2,keyasint"`
	Compressed bool          `cbor:"3,keyasint"`
	Deps       []snapshotDep `cbor:"4,keyasint"`
	DepsHash   uint64        `cbor:"5,keyasint"`
	CreatedAt  time.Time     `cbor:"6,keyasint"`
	ExpiresAt  time.Time     `cbor:"7,keyasint"`
	HitCount   int64         `cbor:"8,keyasint"`
	TTL        time.Duration `cbor:"9,keyasint"`
	LastHit    time.Time     `cbor:"10,keyasint"`
}

type snapshotDep struct {
	Level   int    `cbor:"1,keyasint"`
	ID      string `cbor:"2,keyasint"`
	Version int64  `cbor:"3,keyasint"`
}

// Snapshot writes the unexpired entry set to w in CBOR. The snapshot is a
// pre-warm artifact only; the store remains the source of truth.
func (e *Engine) Snapshot(w io.Writer) error {
	now := e.now()

	e.mu.Lock()
	file := snapshotFile{
		Version:   snapshotFormatVersion,
		CreatedAt: now,
		Entries:   make([]snapshotEntry, 0, len(e.entries)),
	}
	for _, ent := range e.entries {
		if now.After(ent.expiresAt) {
			continue
		}
		se := snapshotEntry{
			Key:        ent.key,
			Payload:    ent.payload,
			Compressed: ent.compressed,
			DepsHash:   ent.depsHash,
			CreatedAt:  ent.createdAt,
			ExpiresAt:  ent.expiresAt,
			HitCount:   ent.hitCount,
			TTL:        ent.ttl,
			LastHit:    ent.lastHit,
			Deps:       make([]snapshotDep, len(ent.deps)),
		}
		for i, d := range ent.deps {
			se.Deps[i] = snapshotDep{Level: int(d.Level), ID: d.ID, Version: d.Version}
		}
		file.Entries = append(file.Entries, se)
	}
	e.mu.Unlock()

	enc := cbor.NewEncoder(w)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("cache: encode snapshot: %w", err)
	}
	return nil
}

// Restore loads entries from a snapshot written by Snapshot, dropping entries
// that have expired, whose dependency records no longer match their recorded
// hash, or that no longer fit the budget. Returns the number of entries
// loaded. Restored entries keep their recorded expiry, last-hit time, and
// dependency records; entries without dependency records are tracked so
// propagation can fall back to coarse invalidation.
func (e *Engine) Restore(r io.Reader) (int, error) {
	var file snapshotFile
	dec := cbor.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return 0, fmt.Errorf("cache: decode snapshot: %w", err)
	}
	if file.Version != snapshotFormatVersion {
		return 0, fmt.Errorf("%w: %d", ErrSnapshotVersion, file.Version)
	}

	now := e.now()
	loaded := 0

	e.mu.Lock()
	defer e.mu.Unlock()

	candidates := make([]*entry, 0, len(file.Entries))
	for _, se := range file.Entries {
		if now.After(se.ExpiresAt) {
			continue
		}
		deps := make([]Dependency, len(se.Deps))
		for i, d := range se.Deps {
			deps[i] = Dependency{Level: hierarchy.Level(d.Level), ID: d.ID, Version: d.Version}
		}
		if Fingerprint(deps) != se.DepsHash {
			// Damaged entry: the dependency records no longer match the
			// hash they were written with.
			continue
		}

		ttl := se.TTL
		if ttl <= 0 {
			ttl = e.cfg.DefaultTTL
		}
		lastHit := se.LastHit
		if lastHit.IsZero() {
			lastHit = now
		}
		candidates = append(candidates, &entry{
			key:        se.Key,
			payload:    se.Payload,
			compressed: se.Compressed,
			deps:       deps,
			depsHash:   se.DepsHash,
			restored:   true,
			createdAt:  se.CreatedAt,
			expiresAt:  se.ExpiresAt,
			ttl:        ttl,
			lastHit:    lastHit,
			hitCount:   se.HitCount,
			size:       int64(len(se.Payload)),
		})
	}

	// Restored entries queue behind live ones, most recently hit first, so
	// eviction order still follows last hit time.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastHit.After(candidates[j].lastHit)
	})

	for _, ent := range candidates {
		if ent.size > e.cfg.MaxSizeBytes || e.curSize+ent.size > e.cfg.MaxSizeBytes {
			// Pre-warm never evicts live entries to make room.
			continue
		}
		if _, exists := e.entries[ent.key]; exists {
			continue
		}
		ent.elem = e.lru.PushBack(ent)
		e.entries[ent.key] = ent
		e.curSize += ent.size
		e.indexLocked(ent)
		loaded++
	}
	return loaded, nil
}

// SnapshotToFile writes a snapshot atomically via a temp file rename.
func (e *Engine) SnapshotToFile(path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("cache: create snapshot file: %w", err)
	}
	if err := e.Snapshot(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: close snapshot file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("cache: rename snapshot file: %w", err)
	}
	return nil
}

// RestoreFromFile pre-warms the engine from a snapshot file. A missing file
// is not an error; it returns (0, nil).
func (e *Engine) RestoreFromFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache: open snapshot file: %w", err)
	}
	defer f.Close()
	return e.Restore(f)
}
