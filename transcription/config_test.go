package transcription

import (
	"testing"

	"github.com/kbukum/audiotranscriber/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.ModelID != "mlx-community/whisper-large-v3-turbo" || cfg.Language != "ja" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if len(cfg.Temperatures) != 5 || cfg.Temperatures[4] != 0.8 {
		t.Errorf("temperature ladder = %v", cfg.Temperatures)
	}
	if !cfg.FP16 || !cfg.ConditionOnPreviousText || cfg.InitialPrompt == "" {
		t.Error("fp16, condition_on_previous_text and initial_prompt should be set by default")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing model", func(c *Config) { c.ModelID = "" }},
		{"missing language", func(c *Config) { c.Language = "" }},
		{"empty ladder", func(c *Config) { c.Temperatures = nil }},
		{"descending ladder", func(c *Config) { c.Temperatures = []float64{0.4, 0.2} }},
		{"temperature above one", func(c *Config) { c.Temperatures = []float64{0.0, 1.5} }},
		{"negative temperature", func(c *Config) { c.Temperatures = []float64{-0.1, 0.2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.IsFatal(err) {
				t.Errorf("invalid decoding config should be a configuration error, got %v", err)
			}
		})
	}
}

func TestConfigValidate_EmptyPromptAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InitialPrompt = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty initial prompt should be valid: %v", err)
	}
}

func TestResultTexts(t *testing.T) {
	r := newResult([]Segment{{Text: "  hello "}, {Text: "\tworld\n"}}, "en")
	got := r.Texts()
	if len(got) != 2 || got[0] != "hello" || got[1] != "world" {
		t.Errorf("Texts() = %q", got)
	}

	empty := newResult(nil, "ja")
	if empty.Segments == nil {
		t.Error("segments must never be nil")
	}
	if len(empty.Texts()) != 0 || empty.Duration != 0 {
		t.Errorf("unexpected empty result %+v", empty)
	}
}
