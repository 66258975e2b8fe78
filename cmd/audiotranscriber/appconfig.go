package main

import (
	"fmt"

	"github.com/kbukum/audiotranscriber/config"
	"github.com/kbukum/audiotranscriber/coordinator"
	"github.com/kbukum/audiotranscriber/database"
	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/kafka"
	"github.com/kbukum/audiotranscriber/mutator"
	"github.com/kbukum/audiotranscriber/observability"
	"github.com/kbukum/audiotranscriber/redis"
	"github.com/kbukum/audiotranscriber/server"
	"github.com/kbukum/audiotranscriber/storage"
	"github.com/kbukum/audiotranscriber/transcode"
	"github.com/kbukum/audiotranscriber/transcription"
	"github.com/kbukum/audiotranscriber/validation"
	"github.com/kbukum/audiotranscriber/version"
)

const (
	serviceName = "audiotranscriber"
	envPrefix   = "AUDIO_TRANSCRIBER_"
)

// Record sources.
const (
	SourceKafka = "kafka"
	SourceHTTP  = "http"
)

// Emit sinks. An empty sink picks kafka when kafka is enabled, log otherwise.
const (
	SinkKafka = "kafka"
	SinkLog   = "log"
)

// AppConfig is the full process configuration.
type AppConfig struct {
	config.ServiceConfig `mapstructure:",squash"`

	Transcription TranscriptionSection `mapstructure:"transcription"`
	Transcode     TranscodeSection     `mapstructure:"transcode"`
	Pipeline      PipelineSection      `mapstructure:"pipeline"`

	Kafka         kafka.Config         `mapstructure:"kafka"`
	Server        server.Config        `mapstructure:"server"`
	Database      database.Config      `mapstructure:"database"`
	Redis         redis.Config         `mapstructure:"redis"`
	Storage       storage.Config       `mapstructure:"storage"`
	Observability observability.Config `mapstructure:"observability"`
}

// TranscriptionSection holds the decoding parameters and the engine choice
// side by side under one key.
type TranscriptionSection struct {
	transcription.Config       `mapstructure:",squash"`
	transcription.EngineConfig `mapstructure:",squash"`
}

// TranscodeSection wires the optional ffmpeg transcoder.
type TranscodeSection struct {
	Enabled                bool `mapstructure:"enabled"`
	transcode.Config       `mapstructure:",squash"`
	transcode.FFmpegConfig `mapstructure:",squash"`
}

// PipelineSection configures the coordinator and its record source.
type PipelineSection struct {
	mutator.Fields `mapstructure:",squash"`

	Tag             string `mapstructure:"tag" validate:"required"`
	RemoveAudio     bool   `mapstructure:"remove_audio"`
	AppendTimestamp bool   `mapstructure:"append_timestamp"`
	IncludeMetrics  bool   `mapstructure:"include_metrics"`
	Workers         int    `mapstructure:"workers" validate:"min=0,max=16"`
	TempDir         string `mapstructure:"temp_dir"`
	Source          string `mapstructure:"source" validate:"oneof=kafka http"`
	Sink            string `mapstructure:"sink" validate:"omitempty,oneof=kafka log"`
}

// defaultAppConfig is the config before any file or environment is read.
// Booleans that default to true must be set here: ApplyDefaults cannot tell
// an explicit false from an absent key.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		ServiceConfig: config.ServiceConfig{Name: serviceName},
		Transcription: TranscriptionSection{
			Config:       transcription.DefaultConfig(),
			EngineConfig: transcription.DefaultEngineConfig(),
		},
		Transcode: TranscodeSection{Config: transcode.DefaultConfig()},
		Pipeline: PipelineSection{
			Fields:          mutator.DefaultFields(),
			Tag:             coordinator.DefaultTag,
			AppendTimestamp: true,
			IncludeMetrics:  true,
			Workers:         coordinator.DefaultWorkers,
			Source:          SourceHTTP,
		},
		Database: database.Config{Migrate: true},
	}
}

// loadConfig reads defaults, then the config file, then the .env file, then
// AUDIO_TRANSCRIBER_* variables.
func loadConfig(path, envFile string) (*AppConfig, error) {
	cfg := defaultAppConfig()
	opts := []config.LoaderOption{config.WithEnvPrefix(envPrefix)}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}
	return cfg, nil
}

// ApplyDefaults fills every zero-valued setting.
func (c *AppConfig) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Short()
	}
	c.ServiceConfig.ApplyDefaults()

	t := &c.Transcription
	def := transcription.DefaultConfig()
	if t.ModelID == "" {
		t.ModelID = def.ModelID
	}
	if t.Language == "" {
		t.Language = def.Language
	}
	if len(t.Temperatures) == 0 {
		t.Temperatures = def.Temperatures
	}
	if t.Engine == "" {
		t.Engine = transcription.EngineMLX
	}

	tc := &c.Transcode
	tdef := transcode.DefaultConfig()
	if tc.OutputExtension == "" {
		tc.OutputExtension = tdef.OutputExtension
	}
	if tc.BufferDir == "" {
		tc.BufferDir = tdef.BufferDir
	}

	p := &c.Pipeline
	p.Fields = p.Fields.WithDefaults()
	if p.Tag == "" {
		p.Tag = coordinator.DefaultTag
	}
	if p.Workers == 0 {
		p.Workers = coordinator.DefaultWorkers
	}
	if p.Source == "" {
		p.Source = SourceHTTP
	}

	c.Kafka.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Redis.ApplyDefaults()
	c.Storage.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section. Failures are CONFIGURATION_ERROR.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return errors.Configuration(err.Error()).WithCause(err)
	}
	if err := c.Transcription.Config.Validate(); err != nil {
		return err
	}
	if err := validation.Config(c.Transcription.EngineConfig); err != nil {
		return err
	}
	if c.Transcode.Enabled {
		if err := c.Transcode.Config.Validate(); err != nil {
			return err
		}
	}
	if err := validation.Config(c.Pipeline); err != nil {
		return err
	}
	if c.Pipeline.Sink == SinkKafka && !c.Kafka.Enabled {
		return errors.Configuration("pipeline.sink kafka requires kafka.enabled")
	}

	sections := []struct {
		name     string
		validate func() error
	}{
		{"kafka", c.Kafka.Validate},
		{"server", c.Server.Validate},
		{"database", c.Database.Validate},
		{"redis", c.Redis.Validate},
		{"storage", c.Storage.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			if _, ok := errors.AsAppError(err); ok {
				return err
			}
			return errors.Configuration(fmt.Sprintf("%s: %v", s.name, err)).WithCause(err)
		}
	}
	return nil
}

// validateServe checks what only the long-running service needs.
func (c *AppConfig) validateServe() error {
	if c.Pipeline.Source == SourceKafka {
		if err := c.Kafka.ValidateSource(); err != nil {
			return errors.Configuration("pipeline.source kafka: " + err.Error()).WithCause(err)
		}
	}
	return nil
}

// binaryFields names the record fields carried base64 in JSON.
func (c *AppConfig) binaryFields() []string {
	return []string{c.Pipeline.InputContent}
}

// sink resolves the emit sink.
func (c *AppConfig) sink() string {
	if c.Pipeline.Sink != "" {
		return c.Pipeline.Sink
	}
	if c.Kafka.Enabled {
		return SinkKafka
	}
	return SinkLog
}
