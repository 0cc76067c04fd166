// Package otel publishes engine counters through an OpenTelemetry meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// a gauge per histogram bucket. A single callback reads
// [sessionkit.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
