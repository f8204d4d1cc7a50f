package store

import (
	"context"
	"errors"

	"github.com/jonwraymond/scopectx/hierarchy"
)

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates no record exists for the requested key.
	ErrNotFound = errors.New("store: record not found")

	// ErrNilRecord indicates Save was called with a nil record.
	ErrNilRecord = errors.New("store: record is nil")

	// ErrEmptyID indicates a record key with an empty id.
	ErrEmptyID = errors.New("store: record id is empty")
)

// Filter narrows List results.
type Filter struct {
	// IDPrefix, if non-empty, restricts results to ids with this prefix.
	IDPrefix string

	// ParentID, if non-empty, restricts results to records whose declared
	// parent is this id.
	ParentID string
}

// Store persists context records per level.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use and must
//     serialize writes to the same (level, id).
//   - Errors: Find returns ErrNotFound for absent records; infrastructure
//     failures are returned as-is and are never retried by callers in this
//     module.
//   - Ownership: returned records belong to the caller; implementations must
//     not retain or mutate them after return.
type Store interface {
	// Find returns the record at (level, id) within the owner scope, or
	// ErrNotFound.
	Find(ctx context.Context, level hierarchy.Level, id, owner string) (*hierarchy.Record, error)

	// Save inserts or replaces a record, bumping its version, and returns
	// the stored form.
	Save(ctx context.Context, rec *hierarchy.Record) (*hierarchy.Record, error)

	// Delete removes the record at (level, id). Returns false if it did not
	// exist.
	Delete(ctx context.Context, level hierarchy.Level, id, owner string) (bool, error)

	// List returns all records at a level within the owner scope matching
	// the filter.
	List(ctx context.Context, level hierarchy.Level, owner string, filter Filter) ([]*hierarchy.Record, error)
}
