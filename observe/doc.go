// Package observe provides the telemetry primitives used across the
// migration engine: an OpenTelemetry-backed Observer, a structured JSON
// Logger, Metrics for batches, resilience calls and operations, a span
// Tracer, and a Middleware that instruments operation invocations.
//
// Exporter construction lives in the exporters subpackage.
package observe
