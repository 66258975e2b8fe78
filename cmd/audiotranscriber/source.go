package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/record"
)

// ackSource is a record stream whose records are acknowledged in the order
// they were yielded.
type ackSource interface {
	Next(ctx context.Context) (*record.Record, bool, error)
	Ack(ctx context.Context) error
	Close() error
}

// sourceRunner drains a record source through the coordinator in the
// background for the lifetime of the process.
type sourceRunner struct {
	name     string
	open     func() (ackSource, error)
	pipeline *pipelineComponent
	log      *logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error
	handled int
}

var _ component.Component = (*sourceRunner)(nil)

func newSourceRunner(name string, open func() (ackSource, error), p *pipelineComponent, log *logger.Logger) *sourceRunner {
	return &sourceRunner{name: name, open: open, pipeline: p, log: log.WithComponent(name)}
}

func (r *sourceRunner) Name() string { return r.name }

// Start opens the source and begins consuming. The run outlives ctx, which
// only bounds startup; Stop ends it.
func (r *sourceRunner) Start(ctx context.Context) error {
	coord := r.pipeline.Coordinator()
	if coord == nil {
		return fmt.Errorf("%s: pipeline not started", r.name)
	}
	src, err := r.open()
	if err != nil {
		return err
	}

	ackCtx := context.WithoutCancel(ctx)
	runCtx, cancel := context.WithCancel(ackCtx)
	done := make(chan struct{})
	r.mu.Lock()
	r.cancel, r.done, r.runErr, r.handled = cancel, done, nil, 0
	r.mu.Unlock()

	go func() {
		defer close(done)
		err := coord.Run(runCtx, src, func(o coordinator.Outcome) {
			// Failed records are acked too. The dead letter sinks keep them.
			if err := src.Ack(ackCtx); err != nil {
				r.log.Error("Ack failed", logger.Fields(
					logger.FieldAudioID, o.AudioID,
					logger.FieldError, err.Error(),
				))
			}
			r.mu.Lock()
			r.handled++
			r.mu.Unlock()
		})
		if err != nil && !stderrors.Is(err, context.Canceled) {
			r.log.Error("Record source stopped", logger.Fields(logger.FieldError, err.Error()))
		}
		r.mu.Lock()
		r.runErr = err
		r.mu.Unlock()
	}()
	r.log.Info("Consuming records")
	return nil
}

// Stop ends admission and waits for admitted records to finish.
func (r *sourceRunner) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", r.name, ctx.Err())
	}
	r.mu.Lock()
	handled := r.handled
	r.mu.Unlock()
	r.log.Info("Record source stopped", logger.Fields("handled", handled))
	return nil
}

// Health is unhealthy once the run has ended on its own.
func (r *sourceRunner) Health(context.Context) component.Health {
	h := component.Health{Name: r.name, Status: component.StatusHealthy}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done == nil {
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
		return h
	}
	select {
	case <-r.done:
		h.Status = component.StatusUnhealthy
		h.Message = "record source ended"
		if r.runErr != nil {
			h.Message += ": " + r.runErr.Error()
		}
	default:
	}
	return h
}
