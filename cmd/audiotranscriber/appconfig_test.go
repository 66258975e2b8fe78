package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/audiotranscriber/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func kindOf(err error) errors.ErrorCode {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

func validConfig(t *testing.T) *AppConfig {
	t.Helper()
	cfg := defaultAppConfig()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	return cfg
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
environment: production
transcription:
  model: mlx-community/whisper-small
  language: en
  temperatures: [0.0, 0.5]
transcode:
  enabled: true
  output_extension: wav
  buffer_path: /tmp/buffer
pipeline:
  output_transcription: text
  append_timestamp: false
  workers: 4
server:
  port: 9090
`)
	t.Setenv("AUDIO_TRANSCRIBER_PIPELINE_TAG", "audio.text")

	cfg, err := loadConfig(path, "")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Transcription.ModelID != "mlx-community/whisper-small" || cfg.Transcription.Language != "en" {
		t.Errorf("transcription = %+v", cfg.Transcription.Config)
	}
	if len(cfg.Transcription.Temperatures) != 2 {
		t.Errorf("temperatures = %v", cfg.Transcription.Temperatures)
	}
	if !cfg.Transcode.Enabled || cfg.Transcode.OutputExtension != "wav" || cfg.Transcode.BufferDir != "/tmp/buffer" {
		t.Errorf("transcode = %+v", cfg.Transcode)
	}
	if cfg.Pipeline.OutputTranscription != "text" {
		t.Errorf("output field = %q", cfg.Pipeline.OutputTranscription)
	}
	if cfg.Pipeline.InputContent != "content" || cfg.Pipeline.InputPath != "path" {
		t.Errorf("unset fields should keep defaults: %+v", cfg.Pipeline.Fields)
	}
	if cfg.Pipeline.AppendTimestamp {
		t.Error("explicit append_timestamp: false was overridden")
	}
	if !cfg.Pipeline.IncludeMetrics {
		t.Error("include_metrics should default to true")
	}
	if cfg.Pipeline.Workers != 4 {
		t.Errorf("workers = %d", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.Tag != "audio.text" {
		t.Errorf("tag = %q, want env override", cfg.Pipeline.Tag)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Environment != "production" || cfg.Debug {
		t.Errorf("environment = %q debug = %v", cfg.Environment, cfg.Debug)
	}
	if cfg.Transcription.InitialPrompt == "" {
		t.Error("initial prompt should keep its default")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), "")
	if kindOf(err) != errors.ErrCodeConfiguration {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg := validConfig(t)
	if cfg.Name != serviceName {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Pipeline.Tag != "audio.transcribed" {
		t.Errorf("tag = %q", cfg.Pipeline.Tag)
	}
	if cfg.Pipeline.Source != SourceHTTP {
		t.Errorf("source = %q", cfg.Pipeline.Source)
	}
	if cfg.sink() != SinkLog {
		t.Errorf("sink = %q, want log without kafka", cfg.sink())
	}
	if cfg.Transcription.Engine != "mlx" || cfg.Transcription.PythonVenvPath != "./myenv" {
		t.Errorf("engine = %+v", cfg.Transcription.EngineConfig)
	}
	if !cfg.Database.Migrate {
		t.Error("ledger migrations should run by default")
	}
	if got := cfg.binaryFields(); len(got) != 1 || got[0] != "content" {
		t.Errorf("binary fields = %v", got)
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"descending temperatures", func(c *AppConfig) { c.Transcription.Temperatures = []float64{0.4, 0.2} }},
		{"temperature above one", func(c *AppConfig) { c.Transcription.Temperatures = []float64{0, 1.5} }},
		{"empty language", func(c *AppConfig) { c.Transcription.Language = "" }},
		{"too many workers", func(c *AppConfig) { c.Pipeline.Workers = 17 }},
		{"unknown source", func(c *AppConfig) { c.Pipeline.Source = "files" }},
		{"unknown sink", func(c *AppConfig) { c.Pipeline.Sink = "s3" }},
		{"kafka sink without kafka", func(c *AppConfig) { c.Pipeline.Sink = SinkKafka }},
		{"transcode extension with slash", func(c *AppConfig) {
			c.Transcode.Enabled = true
			c.Transcode.OutputExtension = "a/b"
		}},
		{"unknown environment", func(c *AppConfig) { c.Environment = "qa" }},
		{"auth without secret", func(c *AppConfig) { c.Server.Auth.Enabled = true }},
		{"database without dsn", func(c *AppConfig) {
			c.Database.Enabled = true
			c.Database.DSN = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if kindOf(err) != errors.ErrCodeConfiguration {
				t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
			}
		})
	}
}

func TestAppConfig_TranscodeDisabledSkipsItsValidation(t *testing.T) {
	cfg := validConfig(t)
	cfg.Transcode.OutputExtension = "a/b"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled transcode should not be validated: %v", err)
	}
}

func TestAppConfig_ValidateServe(t *testing.T) {
	cfg := validConfig(t)
	if err := cfg.validateServe(); err != nil {
		t.Fatalf("http source: %v", err)
	}

	cfg.Pipeline.Source = SourceKafka
	if err := cfg.validateServe(); kindOf(err) != errors.ErrCodeConfiguration {
		t.Fatalf("kafka source without kafka: got %v", err)
	}

	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.GroupID = "transcriber"
	cfg.Kafka.Topics = []string{"audio.raw"}
	if err := cfg.validateServe(); err != nil {
		t.Fatalf("configured kafka source: %v", err)
	}
	if cfg.sink() != SinkKafka {
		t.Errorf("sink = %q, want kafka when enabled", cfg.sink())
	}
	cfg.Pipeline.Sink = SinkLog
	if cfg.sink() != SinkLog {
		t.Errorf("explicit sink ignored: %q", cfg.sink())
	}
}
