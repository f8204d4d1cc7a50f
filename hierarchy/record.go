package hierarchy

import "time"

// Record is one stored context document at a single level.
//
// ParentID names the record one level up. It is empty for GLOBAL records and
// may be empty for PROJECT records, whose parent defaults to the owner's
// GLOBAL record.
type Record struct {
	Level     Level            `json:"level"`
	ID        string           `json:"id"`
	Owner     string           `json:"owner_scope"`
	ParentID  string           `json:"parent_id,omitempty"`
	Data      map[string]Value `json:"data"`
	Version   int64            `json:"version"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Clone returns a deep copy safe for independent mutation. Value payloads are
// shared since Values are immutable.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Data = make(map[string]Value, len(r.Data))
	for k, v := range r.Data {
		out.Data[k] = v
	}
	return &out
}

// Chain is the ordered list of records actually found while walking from
// GLOBAL down to a requested level.
type Chain struct {
	Records     []*Record `json:"records"`
	LevelsFound []Level   `json:"levels_found"`
	Depth       int       `json:"depth"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// Resolved is the merged context view produced by overlaying a Chain
// leaf-over-root. It is never persisted; it is recomputed or served from
// cache.
type Resolved struct {
	Data       map[string]Value `json:"data"`
	Chain      []Level          `json:"inheritance_chain"`
	Depth      int              `json:"inheritance_depth"`
	ResolvedAt time.Time        `json:"resolved_at"`
}
