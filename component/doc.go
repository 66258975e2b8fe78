// Package component defines the lifecycle contract shared by the
// infrastructure around the transcription pipeline: the Kafka source and
// sinks, the dead-letter ledger, the dedupe store, the archive and the HTTP
// server.
//
// Components are registered with a Registry, started in registration order
// and stopped in reverse order, so the pipeline can drain in-flight records
// before the sinks it emits to are closed.
package component
