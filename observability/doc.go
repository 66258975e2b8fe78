// Package observability wires OpenTelemetry tracing and metrics into the
// transcription pipeline.
//
// Component starts OTLP/HTTP exporters for traces and metrics and shuts them
// down with the service. Metrics counts record outcomes and engine calls and
// satisfies coordinator.Metrics; the HTTP server reports requests through
// OperationContext.
//
//	metrics, err := observability.NewMetrics(observability.Meter("audiotranscriber"))
//	coord, err := coordinator.New(coordinator.Options{Metrics: metrics, ...})
package observability
