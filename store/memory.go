package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/scopectx/hierarchy"
)

// MemoryStore is an in-memory Store implementation. Records are partitioned
// by owner scope at every level, so two owners never share an id.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[recordKey]*hierarchy.Record

	// now is swappable for tests.
	now func() time.Time
}

type recordKey struct {
	level hierarchy.Level
	owner string
	id    string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[recordKey]*hierarchy.Record),
		now:     time.Now,
	}
}

// Find returns the record at (level, id) for owner, or ErrNotFound.
func (s *MemoryStore) Find(_ context.Context, level hierarchy.Level, id, owner string) (*hierarchy.Record, error) {
	if id == "" {
		return nil, ErrEmptyID
	}

	s.mu.RLock()
	rec, ok := s.records[recordKey{level: level, owner: owner, id: id}]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// Save inserts or replaces a record. The stored version is the previous
// version plus one, starting at one.
func (s *MemoryStore) Save(_ context.Context, rec *hierarchy.Record) (*hierarchy.Record, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	if rec.ID == "" {
		return nil, ErrEmptyID
	}

	key := recordKey{level: rec.Level, owner: rec.Owner, id: rec.ID}
	stored := rec.Clone()
	stored.UpdatedAt = s.now()

	s.mu.Lock()
	if prev, ok := s.records[key]; ok {
		stored.Version = prev.Version + 1
	} else {
		stored.Version = 1
	}
	s.records[key] = stored
	s.mu.Unlock()

	return stored.Clone(), nil
}

// Delete removes the record at (level, id). Idempotent.
func (s *MemoryStore) Delete(_ context.Context, level hierarchy.Level, id, owner string) (bool, error) {
	if id == "" {
		return false, ErrEmptyID
	}

	key := recordKey{level: level, owner: owner, id: id}

	s.mu.Lock()
	_, ok := s.records[key]
	delete(s.records, key)
	s.mu.Unlock()

	return ok, nil
}

// List returns matching records at a level for owner, sorted by id.
func (s *MemoryStore) List(_ context.Context, level hierarchy.Level, owner string, filter Filter) ([]*hierarchy.Record, error) {
	s.mu.RLock()
	var out []*hierarchy.Record
	for key, rec := range s.records {
		if key.level != level || key.owner != owner {
			continue
		}
		if filter.IDPrefix != "" && !strings.HasPrefix(key.id, filter.IDPrefix) {
			continue
		}
		if filter.ParentID != "" && rec.ParentID != filter.ParentID {
			continue
		}
		out = append(out, rec.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
