// Package otel exports goIdentity engine counters through an OpenTelemetry
// Meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and
// one Int64ObservableGauge per histogram bucket. A single callback reads
// the engine snapshot on each collection. The caller owns the
// MeterProvider.
package otel
