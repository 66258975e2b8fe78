package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/observability"
	"github.com/kbukum/audiotranscriber/provider"
	"github.com/kbukum/audiotranscriber/record"
	"github.com/kbukum/audiotranscriber/stager"
	"github.com/kbukum/audiotranscriber/transcode"
	"github.com/kbukum/audiotranscriber/transcription"
)

// collaborators resolves the optional ports once the infrastructure
// components have started. Any field may be nil.
type collaborators struct {
	Emitter    func() coordinator.Emitter
	DeadLetter func() coordinator.DeadLetter
	Dedupe     func() coordinator.Deduper
	Archive    func() coordinator.Archive
}

// pipelineComponent opens the engines on Start and owns the coordinator
// built from them.
type pipelineComponent struct {
	cfg     *AppConfig
	log     *logger.Logger
	metrics *observability.Metrics
	ports   collaborators

	openTranscriber func(ctx context.Context, cfg transcription.EngineConfig) (transcription.Transcriber, error)
	openTranscoder  func(cfg transcode.FFmpegConfig) (transcode.Transcoder, error)

	mu          sync.RWMutex
	coord       *coordinator.Coordinator
	transcriber transcription.Transcriber
	transcoder  transcode.Transcoder
}

var (
	_ component.Component   = (*pipelineComponent)(nil)
	_ component.Describable = (*pipelineComponent)(nil)
)

// coordinatorLogger names the registered logger the coordinator writes with.
const coordinatorLogger = "coordinator"

func newPipelineComponent(cfg *AppConfig, log *logger.Logger, metrics *observability.Metrics, ports collaborators) *pipelineComponent {
	return &pipelineComponent{
		cfg:             cfg,
		log:             log.WithComponent("pipeline"),
		metrics:         metrics,
		ports:           ports,
		openTranscriber: transcription.Open,
		openTranscoder: func(cfg transcode.FFmpegConfig) (transcode.Transcoder, error) {
			ff, err := transcode.NewFFmpeg(cfg)
			if err != nil {
				return nil, err
			}
			return ff, nil
		},
	}
}

func (p *pipelineComponent) Name() string { return "pipeline" }

// Start opens the transcription engine, the optional transcoder and the
// coordinator. Engine failures are CONFIGURATION_ERROR.
func (p *pipelineComponent) Start(ctx context.Context) error {
	engineCfg := p.cfg.Transcription.EngineConfig
	engineCfg.Logger = p.log
	t, err := p.openTranscriber(ctx, engineCfg)
	if err != nil {
		return err
	}

	var tc transcode.Transcoder
	if p.cfg.Transcode.Enabled {
		ffCfg := p.cfg.Transcode.FFmpegConfig
		ffCfg.Logger = p.log
		if tc, err = p.openTranscoder(ffCfg); err != nil {
			_ = provider.Close(ctx, t)
			return err
		}
	}

	st, err := stager.New(p.cfg.Pipeline.TempDir)
	if err != nil {
		_ = provider.Close(ctx, t)
		return errors.Configuration(fmt.Sprintf("pipeline.temp_dir: %v", err)).WithCause(err)
	}

	opts := coordinator.Options{
		Transcriber:         t,
		Transcoder:          tc,
		Tracer:              observability.Tracer("audiotranscriber/coordinator"),
		Stager:              st,
		Logger:              logger.Get(coordinatorLogger),
		Workers:             p.cfg.Pipeline.Workers,
		Tag:                 p.cfg.Pipeline.Tag,
		Fields:              p.cfg.Pipeline.Fields,
		TranscriptionConfig: p.cfg.Transcription.Config,
		TranscodeConfig:     p.cfg.Transcode.Config,
		AppendTimestamp:     p.cfg.Pipeline.AppendTimestamp,
		IncludeMetrics:      p.cfg.Pipeline.IncludeMetrics,
		RemoveAudio:         p.cfg.Pipeline.RemoveAudio,
	}
	if p.metrics != nil {
		opts.Metrics = p.metrics
	}
	if f := p.ports.Emitter; f != nil {
		opts.Emitter = f()
	}
	if f := p.ports.DeadLetter; f != nil {
		opts.DeadLetter = f()
	}
	if f := p.ports.Dedupe; f != nil {
		opts.Dedupe = f()
	}
	if f := p.ports.Archive; f != nil {
		opts.Archive = f()
	}

	coord, err := coordinator.New(opts)
	if err != nil {
		_ = provider.Close(ctx, t)
		return err
	}

	p.mu.Lock()
	p.coord, p.transcriber, p.transcoder = coord, t, tc
	p.mu.Unlock()

	p.log.Info("Pipeline ready", logger.Fields(
		logger.FieldEngine, t.Name(),
		logger.FieldModel, p.cfg.Transcription.ModelID,
		"workers", coord.Workers(),
		logger.FieldTag, p.cfg.Pipeline.Tag,
		"transcode", tc != nil,
	))
	return nil
}

// Stop closes the coordinator, waiting for in-flight records, then releases
// the engines.
func (p *pipelineComponent) Stop(ctx context.Context) error {
	p.mu.Lock()
	coord, t := p.coord, p.transcriber
	p.coord, p.transcriber, p.transcoder = nil, nil, nil
	p.mu.Unlock()
	if coord == nil {
		return nil
	}
	var errs []error
	if err := coord.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close coordinator: %w", err))
	}
	if err := provider.Close(ctx, t); err != nil {
		errs = append(errs, fmt.Errorf("close transcriber: %w", err))
	}
	return stderrors.Join(errs...)
}

func (p *pipelineComponent) Health(ctx context.Context) component.Health {
	h := component.Health{Name: p.Name(), Status: component.StatusHealthy}
	p.mu.RLock()
	t := p.transcriber
	p.mu.RUnlock()
	switch {
	case t == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "pipeline not started"
	case !t.IsAvailable(ctx):
		h.Status = component.StatusDegraded
		h.Message = t.Name() + " engine unavailable"
	}
	return h
}

func (p *pipelineComponent) Describe() component.Description {
	details := fmt.Sprintf("engine=%s model=%s workers=%d tag=%s",
		p.cfg.Transcription.Engine, p.cfg.Transcription.ModelID, p.cfg.Pipeline.Workers, p.cfg.Pipeline.Tag)
	if p.cfg.Transcode.Enabled {
		details += " transcode=" + p.cfg.Transcode.OutputExtension
	}
	return component.Description{Name: "Pipeline", Type: "pipeline", Details: details}
}

// Coordinator returns the running coordinator, or nil before Start and
// after Stop.
func (p *pipelineComponent) Coordinator() *coordinator.Coordinator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.coord
}

// ProcessBatch forwards to the coordinator. Without one every record is
// dropped as SERVICE_UNAVAILABLE, the same as a closed coordinator.
func (p *pipelineComponent) ProcessBatch(ctx context.Context, recs []*record.Record) coordinator.BatchReport {
	if coord := p.Coordinator(); coord != nil {
		return coord.ProcessBatch(ctx, recs)
	}
	report := coordinator.BatchReport{Outcomes: make([]coordinator.Outcome, 0, len(recs))}
	for i, rec := range recs {
		report.Outcomes = append(report.Outcomes, coordinator.Outcome{
			Index:   i,
			State:   coordinator.Dropped,
			Record:  rec,
			Err:     errors.ServiceUnavailable("pipeline"),
			Kind:    errors.ErrCodeServiceUnavailable,
			AudioID: fmt.Sprintf("record-%d", i),
		})
		report.Failed++
	}
	return report
}
