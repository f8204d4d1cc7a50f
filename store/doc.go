// Package store defines the record persistence boundary for context records.
//
// The Store interface is the collaborator contract consumed by the resolver
// and the orchestrator. MemoryStore is a reference implementation used in
// tests and single-process composition; production deployments plug in their
// own durable implementation.
package store
