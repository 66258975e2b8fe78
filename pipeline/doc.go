// Package pipeline provides pull-based iterators and the operators the
// record pipeline is assembled from.
//
// Pipelines are lazy: nothing runs until values are pulled via Collect,
// Drain or ForEach. Each stage pulls from the previous one on demand, which
// gives backpressure without explicit flow control.
//
//   - Map, Filter, Tap: single-goroutine operators
//   - Ordered: concurrent map with a bounded worker pool that yields results
//     in input order and finishes admitted work after cancellation
//
// # Usage
//
//	src := pipeline.From(kafkaSource)
//	processed := pipeline.Ordered(src, workers, coordinator.Transform)
//	err := pipeline.ForEach(ctx, processed, coordinator.Finish)
package pipeline
