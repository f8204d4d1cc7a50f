package validate

import (
	"context"

	"github.com/jonwraymond/scopectx/hierarchy"
)

// Issue is one field-level validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator checks a payload against level-specific rules.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: validation outcomes are issues, not errors; an empty slice
//     means the payload is acceptable. Implementations must not panic.
type Validator interface {
	// Validate returns all issues found in data for the given level.
	Validate(ctx context.Context, level hierarchy.Level, data map[string]hierarchy.Value) []Issue
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, level hierarchy.Level, data map[string]hierarchy.Value) []Issue

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, level hierarchy.Level, data map[string]hierarchy.Value) []Issue {
	return f(ctx, level, data)
}

// AcceptAll returns a validator that accepts every payload.
func AcceptAll() Validator {
	return ValidatorFunc(func(context.Context, hierarchy.Level, map[string]hierarchy.Value) []Issue {
		return nil
	})
}

// Ensure ValidatorFunc implements Validator
var _ Validator = (ValidatorFunc)(nil)
