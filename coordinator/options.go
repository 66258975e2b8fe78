package coordinator

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/mutator"
	"github.com/kbukum/audiotranscriber/stager"
	"github.com/kbukum/audiotranscriber/transcode"
	"github.com/kbukum/audiotranscriber/transcription"
)

const (
	// DefaultTag is the emit tag when none is configured.
	DefaultTag = "audio.transcribed"
	// DefaultWorkers is the default worker pool size.
	DefaultWorkers = 2
	// MaxWorkers caps the worker pool.
	MaxWorkers = 16
)

// Options wires a Coordinator. Emitter is required; every other
// collaborator is optional.
type Options struct {
	Transcriber transcription.Transcriber
	Transcoder  transcode.Transcoder
	Emitter     Emitter
	DeadLetter  DeadLetter
	Dedupe      Deduper
	Archive     Archive
	Metrics     Metrics
	Tracer      trace.Tracer

	Stager *stager.Stager
	Clock  func() time.Time
	Logger *logger.Logger

	Workers             int
	Tag                 string
	Fields              mutator.Fields
	TranscriptionConfig transcription.Config
	TranscodeConfig     transcode.Config

	// AppendTimestamp wraps the transcription in the banner lines.
	AppendTimestamp bool
	// IncludeMetrics adds processing_time and segments_count.
	IncludeMetrics bool
	// RemoveAudio deletes the input audio files after a successful emit.
	RemoveAudio bool
}

func clampWorkers(n int) int {
	switch {
	case n <= 0:
		return DefaultWorkers
	case n > MaxWorkers:
		return MaxWorkers
	default:
		return n
	}
}
