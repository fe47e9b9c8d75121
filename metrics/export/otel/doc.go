// Package otel exports the engine's credential lifecycle metrics through
// OpenTelemetry observable instruments.
//
// [NewOTelExporter] creates one Int64ObservableCounter per lifecycle counter
// and a gauge per cumulative histogram bucket, then registers a single
// callback that reads [refreshguard.Engine.MetricsSnapshot] whenever a
// reader collects. Nothing is pushed; idle meters cost nothing.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate engine state.
package otel
