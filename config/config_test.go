package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type testTranscription struct {
	Model        string        `mapstructure:"model"`
	Language     string        `mapstructure:"language"`
	Temperatures []float64     `mapstructure:"temperatures"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Transcription testTranscription `mapstructure:"transcription"`
	Workers       int               `mapstructure:"workers"`
}

type fakeFS struct {
	files   map[string]bool
	envLoad []string
}

func (f *fakeFS) Exists(path string) bool { return f.files[path] }
func (f *fakeFS) LoadEnv(path string) error {
	f.envLoad = append(f.envLoad, path)
	return nil
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "debug" {
			t.Errorf("expected debug log level in development, got %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected info log level, got %q", cfg.Logging.Level)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
name: audio-transcriber
environment: staging
workers: 3
transcription:
  model: mlx-community/whisper-large-v3-turbo
  language: ja
  temperatures: [0.0, 0.2, 0.4]
  timeout: 90s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	var cfg testConfig
	if err := LoadConfig("audio-transcriber", &cfg, WithConfigFile(configPath), WithEnvPrefix("ATTEST_NONE_")); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Name != "audio-transcriber" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Workers != 3 {
		t.Errorf("expected workers=3, got %d", cfg.Workers)
	}
	if cfg.Transcription.Language != "ja" {
		t.Errorf("expected language ja, got %q", cfg.Transcription.Language)
	}
	if len(cfg.Transcription.Temperatures) != 3 || cfg.Transcription.Temperatures[1] != 0.2 {
		t.Errorf("unexpected temperatures %v", cfg.Transcription.Temperatures)
	}
	if cfg.Transcription.Timeout != 90*time.Second {
		t.Errorf("expected 90s timeout, got %v", cfg.Transcription.Timeout)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("name: svc\ntranscription:\n  language: ja\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ATTEST_TRANSCRIPTION_LANGUAGE", "en")
	t.Setenv("ATTEST_WORKERS", "4")
	t.Setenv("TRANSCRIPTION_LANGUAGE", "fr")

	var cfg testConfig
	err := LoadConfig("svc", &cfg, WithConfigFile(configPath), WithEnvPrefix("ATTEST_"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transcription.Language != "en" {
		t.Errorf("expected prefixed env to win, got %q", cfg.Transcription.Language)
	}
	if cfg.Workers != 4 {
		t.Errorf("expected workers=4 from env, got %d", cfg.Workers)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("svc", &cfg,
		WithFileSystem(&fakeFS{files: map[string]bool{}}),
		WithEnvPrefix("ATTEST_NONE_"),
		WithDefaults(map[string]any{
			"name":                   "defaulted",
			"transcription.language": "ja",
		}),
	)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Name != "defaulted" || cfg.Transcription.Language != "ja" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	var cfg testConfig
	err := LoadConfig("svc", &cfg, WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml")))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfigLoadsEnvFile(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{".env": true}}
	var cfg testConfig
	if err := LoadConfig("svc", &cfg, WithFileSystem(fs), WithEnvPrefix("ATTEST_NONE_")); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(fs.envLoad) != 1 || fs.envLoad[0] != ".env" {
		t.Errorf("expected .env to be loaded, got %v", fs.envLoad)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("TRANSCODE_OUTPUT_EXTENSION")
	want := []string{
		"transcode_output_extension",
		"transcode.output.extension",
		"transcode.output_extension",
	}
	for _, w := range want {
		found := false
		for _, v := range variants {
			if v == w {
				found = true
			}
		}
		if !found {
			t.Errorf("expected variant %q in %v", w, variants)
		}
	}

	if got := generateEnvKeyVariants("WORKERS"); len(got) != 1 || got[0] != "workers" {
		t.Errorf("unexpected single-part variants %v", got)
	}
}
