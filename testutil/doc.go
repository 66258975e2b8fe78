// Package testutil provides in-memory engines and sinks for tests.
//
//	engine := &testutil.FakeTranscriber{Segments: testutil.Segments("hello", "world")}
//	sink := &testutil.MemoryEmitter{}
//	c, _ := coordinator.New(coordinator.Options{Transcriber: engine, Emitter: sink})
package testutil
