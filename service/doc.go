// Package service provides the orchestrating entry point for context
// operations.
//
// The Orchestrator sequences validation, the record store, inheritance
// resolution, the cache engine, and write propagation behind four operations:
// GetContext, CreateContext, UpdateContext, and DeleteContext. Expected
// conditions (missing records, validation failures) are returned as
// structured results; only infrastructure failures surface as errors.
package service
