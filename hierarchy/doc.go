// Package hierarchy defines the data model for scoped context records.
//
// It provides the fixed Level order (GLOBAL < PROJECT < BRANCH < TASK), the
// closed Value variant used for context data, context Records with their
// inheritance Chain, and the deterministic shallow merge that produces a
// Resolved view.
package hierarchy
