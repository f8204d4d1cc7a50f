// Package resolve walks the context hierarchy and keeps the cache consistent
// with writes.
//
// Resolver builds the ancestor chain for a requested record, merges it
// leaf-over-root, and reports the dependency set the resolution consumed.
// Propagator invalidates cached resolutions that depended on a written
// record, using exact dependency tracking with a coarse pattern fallback for
// entries that carry no dependency records.
package resolve
