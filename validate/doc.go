// Package validate defines the payload validation boundary for context
// writes.
//
// The Validator interface is the collaborator contract the orchestrator calls
// before persisting. RuleValidator is a rule-table implementation covering
// per-level required keys, reserved keys, and size limits; deeper structural
// validation belongs to an external service.
package validate
