// Package observe provides telemetry for the context service: OpenTelemetry
// tracing and metrics with pluggable exporters, a structured JSON logger, and
// domain instruments for cache lookups, resolutions, and propagation.
package observe
