package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/formatter"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/mutator"
	"github.com/kbukum/audiotranscriber/pipeline"
	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/stager"
	"github.com/kbukum/audiotranscriber/transcode"
)

// Coordinator runs records through staging, the engine ports, mutation and
// emission.
type Coordinator struct {
	opts    Options
	workers int
	clock   func() time.Time
	stager  *stager.Stager
	tracer  trace.Tracer
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
	runs   map[int]context.CancelFunc
	nextID int
	wg     sync.WaitGroup
}

type job struct {
	index int
	rec   *record.Record
}

// New validates opts and returns a ready Coordinator.
func New(opts Options) (*Coordinator, error) {
	if opts.Emitter == nil {
		return nil, errors.Configuration("coordinator requires an emitter")
	}
	if opts.Tag == "" {
		opts.Tag = DefaultTag
	}
	opts.Fields = opts.Fields.WithDefaults()

	c := &Coordinator{
		opts:    opts,
		workers: clampWorkers(opts.Workers),
		clock:   opts.Clock,
		stager:  opts.Stager,
		tracer:  opts.Tracer,
		log:     opts.Logger,
		runs:    make(map[int]context.CancelFunc),
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.stager == nil {
		c.stager = &stager.Stager{}
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("")
	}
	if c.log == nil {
		c.log = logger.NewNop()
	}
	c.log = c.log.WithComponent("coordinator")
	return c, nil
}

// Workers returns the worker pool size.
func (c *Coordinator) Workers() int { return c.workers }

// Process runs one record through the state machine.
func (c *Coordinator) Process(ctx context.Context, rec *record.Record) Outcome {
	if c.isClosed() {
		return c.rejected(job{rec: rec})
	}
	return c.finish(ctx, c.transform(ctx, job{rec: rec}))
}

// ProcessBatch processes recs on the worker pool. Emission happens in input
// order; skipped and failed records are never emitted.
func (c *Coordinator) ProcessBatch(ctx context.Context, recs []*record.Record) BatchReport {
	report := BatchReport{Outcomes: make([]Outcome, 0, len(recs))}
	jobs := make([]job, len(recs))
	for i, r := range recs {
		jobs[i] = job{index: i, rec: r}
	}
	if c.isClosed() {
		for _, j := range jobs {
			report.add(c.rejected(j))
		}
		return report
	}

	transformed := pipeline.Ordered(pipeline.FromSlice(jobs), c.workers, func(ctx context.Context, j job) (Outcome, error) {
		return c.transform(ctx, j), nil
	})
	_ = pipeline.ForEach(ctx, transformed, func(ctx context.Context, o Outcome) {
		report.add(c.finish(ctx, o))
	})

	// Admission is in input order, so the records left out are a suffix.
	if n := len(report.Outcomes); n < len(jobs) {
		c.log.Warn("batch cancelled before every record was admitted", logger.Fields(
			"admitted", n,
			"rejected", len(jobs)-n,
		))
		for _, j := range jobs[n:] {
			report.add(c.rejected(j))
		}
	}
	return report
}

// Run processes records from source until it is exhausted, ctx is cancelled
// or Close is called. Cancellation stops admission; records already admitted
// finish, including their engine calls and emission. onOutcome, when not
// nil, sees every outcome in source order.
func (c *Coordinator) Run(ctx context.Context, source pipeline.Iterator[*record.Record], onOutcome func(Outcome)) error {
	runCtx, id, err := c.startRun(ctx)
	if err != nil {
		_ = source.Close()
		return err
	}
	defer c.endRun(id)

	index := 0
	jobs := pipeline.Map(pipeline.From(source), func(_ context.Context, r *record.Record) (job, error) {
		j := job{index: index, rec: r}
		index++
		return j, nil
	})
	transformed := pipeline.Ordered(jobs, c.workers, func(ctx context.Context, j job) (Outcome, error) {
		return c.transform(ctx, j), nil
	})

	err = pipeline.ForEach(runCtx, transformed, func(ctx context.Context, o Outcome) {
		o = c.finish(ctx, o)
		if onOutcome != nil {
			onOutcome(o)
		}
	})
	if err != nil {
		return fmt.Errorf("record source: %w", err)
	}
	return nil
}

// Close stops admission on every Run and waits for in-flight records.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	c.closed = true
	for _, cancel := range c.runs {
		cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
	return nil
}

func (c *Coordinator) startRun(ctx context.Context) (context.Context, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, 0, errors.ServiceUnavailable("coordinator")
	}
	runCtx, cancel := context.WithCancel(ctx)
	id := c.nextID
	c.nextID++
	c.runs[id] = cancel
	c.wg.Add(1)
	return runCtx, id, nil
}

func (c *Coordinator) endRun(id int) {
	c.mu.Lock()
	if cancel, ok := c.runs[id]; ok {
		cancel()
		delete(c.runs, id)
	}
	c.mu.Unlock()
	c.wg.Done()
}

func (c *Coordinator) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Coordinator) rejected(j job) Outcome {
	return Outcome{
		Index:   j.index,
		State:   Dropped,
		Record:  j.rec,
		Err:     errors.ServiceUnavailable("coordinator"),
		Kind:    errors.ErrCodeServiceUnavailable,
		AudioID: audioID(j.rec, c.opts.Fields, j.index),
		input:   j.rec,
	}
}

// transform stages the audio and runs the engine ports. It never emits.
func (c *Coordinator) transform(ctx context.Context, j job) (o Outcome) {
	start := c.clock()
	o = Outcome{
		Index:   j.index,
		State:   Received,
		Record:  j.rec,
		AudioID: audioID(j.rec, c.opts.Fields, j.index),
		input:   j.rec,
	}

	ctx, span := c.tracer.Start(ctx, "coordinator.transform", trace.WithAttributes(
		attribute.String(logger.FieldAudioID, o.AudioID),
		attribute.Int(logger.FieldRecordIndex, j.index),
	))
	defer func() {
		if r := recover(); r != nil {
			o.State = Failed
			o.Record = j.rec
			o.Err = errors.Internal(fmt.Errorf("panic: %v", r)).WithDetail("stack", string(debug.Stack()))
		}
		if o.Err != nil {
			o.Kind = errors.KindOf(o.Err)
			span.RecordError(o.Err)
			span.SetStatus(codes.Error, string(o.Kind))
		}
		o.Elapsed = c.clock().Sub(start)
		span.SetAttributes(attribute.String(logger.FieldState, o.State.String()))
		span.End()
	}()

	if j.rec == nil {
		o.State = Skipped
		o.Err = errors.MissingAudio(c.opts.Fields.InputContent, "")
		return o
	}

	if c.opts.Dedupe != nil {
		seen, err := c.opts.Dedupe.Seen(ctx, fingerprint(j.rec, c.opts.Fields))
		if err != nil {
			c.log.WithError(err).Warn("dedupe lookup failed", logger.Fields(logger.FieldAudioID, o.AudioID))
		} else if seen {
			o.State = Skipped
			o.Reason = "duplicate"
			return o
		}
	}

	data, path, err := resolveAudio(j.rec, c.opts.Fields)
	if err != nil {
		o.State = Skipped
		o.Err = err
		return o
	}

	run := func(ctx context.Context, audio *stager.StagedAudio) error {
		o.State = Staged
		out, err := c.runPorts(ctx, j.rec, audio, path, o.AudioID)
		if err != nil {
			return err
		}
		o.Record = out
		o.State = Processed
		return nil
	}
	if data != nil {
		err = c.stager.With(ctx, data, run)
	} else {
		err = c.stager.WithPath(ctx, path, run)
	}

	switch {
	case err == nil:
	case errors.Is(err, errors.ErrCodeMissingAudio):
		o.State = Skipped
		o.Err = err
	default:
		o.State = Failed
		o.Record = j.rec
		o.Err = err
	}
	return o
}

// runPorts transcodes and then transcribes the staged input. The
// transcription reads the staged input, not the transcoder output. A
// transcribed record never carries audio content: with both ports wired it
// keeps the transcoded path and size only.
func (c *Coordinator) runPorts(ctx context.Context, rec *record.Record, audio *stager.StagedAudio, path, id string) (*record.Record, error) {
	out := rec

	var transcoded *transcode.Result
	if c.opts.Transcoder != nil {
		start := c.clock()
		res, err := c.opts.Transcoder.Transcode(ctx, audio.Path, c.opts.TranscodeConfig)
		c.observeEngine(ctx, c.opts.Transcoder.Name(), c.clock().Sub(start), err)
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.Transcode(audio.Path, err)
			}
			return nil, err
		}
		transcoded = res
		c.archive(ctx, res.Path, res.Content)
		out = mutator.ApplyTranscode(out, res, c.opts.Fields)
	}

	if c.opts.Transcriber != nil {
		cfg := c.opts.TranscriptionConfig
		start := c.clock()
		res, err := c.opts.Transcriber.Transcribe(ctx, audio.Path, cfg)
		elapsed := c.clock().Sub(start)
		c.observeEngine(ctx, c.opts.Transcriber.Name(), elapsed, err)
		if err != nil {
			if _, ok := errors.AsAppError(err); !ok {
				err = errors.Transcription(c.opts.Transcriber.Name(), err)
			}
			return nil, err
		}
		text := formatter.Format(res.Segments, formatter.Options{
			IncludeBanner: c.opts.AppendTimestamp,
			SourceLabel:   sourceLabel(path, id),
			ModelID:       cfg.ModelID,
			Timestamp:     c.clock(),
		})
		out = mutator.ApplyTranscription(rec, mutator.TranscriptionOutcome{
			Text:         text,
			ModelID:      cfg.ModelID,
			Language:     cfg.Language,
			SegmentCount: len(res.Segments),
			Elapsed:      elapsed,
		}, c.opts.Fields, c.opts.IncludeMetrics)
		if transcoded != nil {
			out = mutator.ApplyTranscode(out, transcoded, c.opts.Fields)
			out.Delete(c.opts.Fields.Content)
		}
	}
	return out, nil
}

// finish emits processed records and handles failures. It runs on a context
// detached from cancellation so admitted records always complete.
func (c *Coordinator) finish(ctx context.Context, o Outcome) Outcome {
	ctx = context.WithoutCancel(ctx)
	log := c.log.WithFields(logger.Fields(
		logger.FieldAudioID, o.AudioID,
		logger.FieldRecordIndex, o.Index,
		logger.FieldTag, c.opts.Tag,
	))

	if o.State == Processed {
		if err := c.opts.Emitter.Emit(ctx, c.opts.Tag, o.Record); err != nil {
			o.State = Failed
			o.Err = errors.Emit(c.opts.Tag, err)
			o.Kind = errors.ErrCodeEmit
			o.Record = o.input
		} else {
			o.State = Emitted
		}
	}

	switch o.State {
	case Emitted:
		log.Info("record emitted", logger.Fields(logger.FieldDuration, o.Elapsed.Milliseconds()))
		if c.opts.Dedupe != nil {
			if err := c.opts.Dedupe.Mark(ctx, fingerprint(o.input, c.opts.Fields)); err != nil {
				log.WithError(err).Warn("dedupe mark failed")
			}
		}
		if c.opts.RemoveAudio {
			c.removeAudio(log, o.input)
		}
	case Skipped:
		if o.Err != nil {
			log.Warn("record skipped", logger.Fields(logger.FieldErrorKind, string(o.Kind), logger.FieldError, o.Err.Error()))
		} else {
			log.Debug("record skipped", logger.Fields("reason", o.Reason))
		}
	case Failed:
		log.Error("record failed", logger.Fields(logger.FieldErrorKind, string(o.Kind), logger.FieldError, o.Err.Error()))
		if c.opts.DeadLetter != nil {
			letter := Letter{
				Tag:      c.opts.Tag,
				AudioID:  o.AudioID,
				Kind:     o.Kind,
				Reason:   o.Err.Error(),
				Record:   o.input,
				FailedAt: c.clock(),
			}
			if err := c.opts.DeadLetter.DeadLetter(ctx, letter); err != nil {
				log.WithError(err).Error("dead letter failed")
			}
		}
		o.State = Dropped
	}

	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordOutcome(ctx, o.State.String(), string(o.Kind), o.Elapsed)
	}
	return o
}

func (c *Coordinator) observeEngine(ctx context.Context, engine string, elapsed time.Duration, err error) {
	if c.opts.Metrics != nil {
		c.opts.Metrics.RecordEngineCall(ctx, engine, elapsed, err)
	}
}

func (c *Coordinator) archive(ctx context.Context, path string, content []byte) {
	if c.opts.Archive == nil {
		return
	}
	key := baseName(path)
	if err := c.opts.Archive.Upload(ctx, key, bytes.NewReader(content)); err != nil {
		c.log.WithError(err).Warn("archive upload failed", logger.Fields("key", key))
	}
}
