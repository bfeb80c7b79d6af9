// Package observe provides structured logging and OpenTelemetry tracing
// and metrics for the admission/caching stack. Observation is
// side-effect-only: nothing here participates in control flow.
package observe
