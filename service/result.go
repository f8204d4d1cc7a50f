package service

import (
	"time"

	"github.com/jonwraymond/scopectx/hierarchy"
	"github.com/jonwraymond/scopectx/validate"
)

// Fault codes for expected, non-infrastructure failures.
const (
	FaultNotFound       = "not_found"
	FaultValidation     = "validation"
	FaultParentNotFound = "parent_not_found"
)

// Fault describes an expected failure as data. Infrastructure failures are
// returned as errors instead.
type Fault struct {
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Issues  []validate.Issue `json:"issues,omitempty"`
}

func (f *Fault) Error() string {
	return "service: " + f.Code + ": " + f.Message
}

// Metadata carries the response metadata attached to successful operations.
type Metadata struct {
	InheritanceChain []hierarchy.Level `json:"inheritance_chain,omitempty"`
	InheritanceDepth int               `json:"inheritance_depth,omitempty"`
	ResolvedAt       time.Time         `json:"resolved_at,omitzero"`
	Inherited        bool              `json:"inherited"`
	Propagated       int               `json:"propagated"`
	Created          bool              `json:"created"`
}

// GetResult is the outcome of GetContext. Exactly one of Context and Resolved
// is set on success: Context for a raw read, Resolved for an inherited read.
type GetResult struct {
	Success  bool                `json:"success"`
	Context  *hierarchy.Record   `json:"context,omitempty"`
	Resolved *hierarchy.Resolved `json:"resolved_context,omitempty"`
	Metadata Metadata            `json:"metadata"`
	Fault    *Fault              `json:"error,omitempty"`
}

// CreateResult is the outcome of CreateContext.
type CreateResult struct {
	Success  bool              `json:"success"`
	Context  *hierarchy.Record `json:"context,omitempty"`
	Metadata Metadata          `json:"metadata"`
	Fault    *Fault            `json:"error,omitempty"`
}

// UpdateResult is the outcome of UpdateContext.
type UpdateResult struct {
	Success  bool              `json:"success"`
	Context  *hierarchy.Record `json:"context,omitempty"`
	Metadata Metadata          `json:"metadata"`
	Fault    *Fault            `json:"error,omitempty"`
}

// DeleteResult is the outcome of DeleteContext.
type DeleteResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Fault   *Fault `json:"error,omitempty"`
}

// ListResult is the outcome of ListContexts.
type ListResult struct {
	Success  bool                `json:"success"`
	Contexts []*hierarchy.Record `json:"contexts"`
	Fault    *Fault              `json:"error,omitempty"`
}
