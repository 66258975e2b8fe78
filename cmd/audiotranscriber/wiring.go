package main

import (
	"context"
	"io"
	"os"

	"github.com/kbukum/audiotranscriber/bootstrap"
	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/database"
	"github.com/kbukum/audiotranscriber/kafka"
	"github.com/kbukum/audiotranscriber/kafka/consumer"
	"github.com/kbukum/audiotranscriber/kafka/producer"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/observability"
	"github.com/kbukum/audiotranscriber/redis"
	"github.com/kbukum/audiotranscriber/server"
	"github.com/kbukum/audiotranscriber/server/middleware"
	"github.com/kbukum/audiotranscriber/storage"
	"github.com/kbukum/audiotranscriber/transcription"

	_ "github.com/kbukum/audiotranscriber/storage/local"
	_ "github.com/kbukum/audiotranscriber/storage/s3"
)

// wireOptions adjusts how the application is assembled.
type wireOptions struct {
	// serve registers the record source and the HTTP server.
	serve bool
	// emitter replaces the configured sink.
	emitter coordinator.Emitter
	// stdout receives log sink lines. Defaults to os.Stdout.
	stdout io.Writer
	// openTranscriber replaces transcription.Open.
	openTranscriber func(ctx context.Context, cfg transcription.EngineConfig) (transcription.Transcriber, error)
	appOptions      []bootstrap.Option
}

// assembly is a wired, not yet started application.
type assembly struct {
	app      *bootstrap.App[*AppConfig]
	pipeline *pipelineComponent
	server   *server.Server
	database *database.Component
}

// wire registers every component cfg enables. Components start in
// registration order and stop in reverse, so record sources stop before the
// pipeline and the pipeline before the sinks it emits to.
func wire(cfg *AppConfig, o wireOptions) (*assembly, error) {
	app, err := bootstrap.NewApp(cfg, o.appOptions...)
	if err != nil {
		return nil, err
	}
	log := app.Logger
	logger.Register(coordinatorLogger, log.WithComponent(coordinatorLogger))
	if o.stdout == nil {
		o.stdout = os.Stdout
	}

	metrics, err := observability.NewMetrics(observability.Meter(serviceName))
	if err != nil {
		return nil, err
	}

	var components []component.Component
	components = append(components,
		observability.NewComponent(cfg.Observability, cfg.Name, cfg.Version, cfg.Environment, log))

	a := &assembly{app: app}
	if cfg.Database.Enabled {
		a.database = database.NewComponent(cfg.Database, log)
		components = append(components, a.database)
	}
	var rc *redis.Component
	if cfg.Redis.Enabled {
		rc = redis.NewComponent(cfg.Redis, log)
		components = append(components, rc)
	}
	var sc *storage.Component
	if cfg.Storage.Enabled {
		sc = storage.NewComponent(cfg.Storage, log)
		components = append(components, sc)
	}
	var prod *producer.Producer
	consuming := o.serve && cfg.Pipeline.Source == SourceKafka
	if cfg.Kafka.Enabled {
		kc := kafka.NewComponent(cfg.Kafka, log)
		if prod, err = producer.New(cfg.Kafka, log); err != nil {
			return nil, err
		}
		kc.SetProducer(prod)
		kc.SetConsuming(consuming)
		components = append(components, kc)
	}

	ports := collaborators{
		Emitter: func() coordinator.Emitter {
			switch {
			case o.emitter != nil:
				return o.emitter
			case cfg.sink() == SinkKafka:
				return &producer.Emitter{Producer: prod, KeyField: cfg.Pipeline.InputPath}
			default:
				return newLineEmitter(o.stdout)
			}
		},
		DeadLetter: func() coordinator.DeadLetter {
			var sinks deadLetters
			if prod != nil {
				sinks = append(sinks, &producer.DeadLetter{Producer: prod, Config: cfg.Kafka})
			}
			if a.database != nil {
				if l := a.database.Ledger(); l != nil {
					sinks = append(sinks, l)
				}
			}
			return sinks.collapse()
		},
	}
	if rc != nil {
		ports.Dedupe = func() coordinator.Deduper {
			return redis.NewDeduper(rc.Client(), cfg.Name)
		}
	}
	if sc != nil {
		ports.Archive = func() coordinator.Archive {
			if s := sc.Storage(); s != nil {
				return s
			}
			return nil
		}
	}

	a.pipeline = newPipelineComponent(cfg, log, metrics, ports)
	if o.openTranscriber != nil {
		a.pipeline.openTranscriber = o.openTranscriber
	}
	components = append(components, a.pipeline)

	if consuming {
		components = append(components, newSourceRunner("kafka-source", func() (ackSource, error) {
			src, err := consumer.NewSource(cfg.Kafka, cfg.binaryFields(), log)
			if err != nil {
				return nil, err
			}
			return src, nil
		}, a.pipeline, log))
	}

	if o.serve && (cfg.Pipeline.Source == SourceHTTP || cfg.Server.Enabled) {
		a.server = server.New(cfg.Server, log)
		a.server.ApplyMiddleware()
		a.server.RegisterDefaultEndpoints(cfg.Name, app.Components.HealthAll)
		ingest := server.IngestOptions{
			ServiceName:  cfg.Name,
			BinaryFields: cfg.binaryFields(),
			Metrics:      metrics,
			RateLimit:    cfg.Server.RateLimit,
		}
		if cfg.Server.Auth.Enabled {
			ingest.Validator = middleware.NewJWTValidator(cfg.Server.Auth)
		}
		a.server.RegisterIngest(a.pipeline, ingest)
		components = append(components, server.NewComponent(a.server))
	}

	for _, c := range components {
		if err := app.RegisterComponent(c); err != nil {
			return nil, err
		}
	}
	return a, nil
}
