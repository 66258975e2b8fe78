// Package kafka connects the transcription pipeline to Kafka.
//
// Records arrive as JSON messages on the configured input topics and are
// read by kafka/consumer.Source, which the coordinator drives as a record
// iterator. Finished records are written by kafka/producer.Emitter to a
// topic named after the emit tag, and failed records go to the tag's dead
// letter topic.
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: audiotranscriber
//	  topics: ["audio.raw"]
//	  dead_letter_suffix: .dead
package kafka
