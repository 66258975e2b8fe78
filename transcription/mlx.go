package transcription

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/process"
)

//go:embed scripts/mlx_transcribe.py
var mlxScript string

// MLX runs mlx_whisper from a Python virtualenv, one subprocess per call.
type MLX struct {
	venv   string
	python string
	runner *process.Runner
	log    *logger.Logger
}

type mlxRequest struct {
	AudioPath               string    `json:"audio_path"`
	Model                   string    `json:"model"`
	Language                string    `json:"language"`
	InitialPrompt           string    `json:"initial_prompt,omitempty"`
	Temperature             []float64 `json:"temperature"`
	ConditionOnPreviousText bool      `json:"condition_on_previous_text"`
	FP16                    bool      `json:"fp16"`
}

type mlxResponse struct {
	Segments []Segment `json:"segments"`
	Language string    `json:"language"`
}

// NewMLX checks the virtualenv and, unless disabled, that mlx_whisper
// imports. Every failure is a CONFIGURATION_ERROR.
func NewMLX(ctx context.Context, cfg EngineConfig) (*MLX, error) {
	venv := cfg.PythonVenvPath
	if venv == "" {
		venv = "./myenv"
	}
	abs, err := filepath.Abs(venv)
	if err != nil {
		return nil, errors.Configuration("invalid python_venv_path: " + venv).WithCause(err)
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return nil, errors.Configuration("python virtualenv not found: " + abs)
	}
	if !hasSitePackages(abs) {
		return nil, errors.Configuration("python site-packages not found under " + abs)
	}
	python := findInterpreter(abs)
	if python == "" {
		return nil, errors.Configuration("python interpreter not found under " + abs)
	}

	log := cfg.log().WithComponent("transcription.mlx")
	m := &MLX{
		venv:   abs,
		python: python,
		runner: process.NewRunner(EngineMLX, cfg.Process, log),
		log:    log,
	}

	if !cfg.SkipImportCheck {
		if _, err := m.runner.Run(ctx, m.command(nil, "import mlx_whisper")); err != nil {
			return nil, errors.Configuration("failed to import mlx_whisper").WithCause(err)
		}
	}
	log.Debug("python environment ready", logger.Fields("venv", abs, "python", python))
	return m, nil
}

func hasSitePackages(venv string) bool {
	for _, pattern := range []string{
		filepath.Join(venv, "lib", "python*", "site-packages"),
		filepath.Join(venv, "Lib", "site-packages"),
	} {
		if matches, _ := filepath.Glob(pattern); len(matches) > 0 {
			return true
		}
	}
	return false
}

func findInterpreter(venv string) string {
	for _, name := range []string{"python3", "python"} {
		p := filepath.Join(venv, "bin", name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Name returns "mlx".
func (m *MLX) Name() string { return EngineMLX }

// IsAvailable reports whether the interpreter is still present.
func (m *MLX) IsAvailable(_ context.Context) bool {
	_, err := os.Stat(m.python)
	return err == nil
}

// Transcribe runs the embedded helper against audioPath.
func (m *MLX) Transcribe(ctx context.Context, audioPath string, cfg Config) (*Result, error) {
	payload, err := json.Marshal(mlxRequest{
		AudioPath:               audioPath,
		Model:                   cfg.ModelID,
		Language:                cfg.Language,
		InitialPrompt:           cfg.InitialPrompt,
		Temperature:             cfg.Temperatures,
		ConditionOnPreviousText: cfg.ConditionOnPreviousText,
		FP16:                    cfg.FP16,
	})
	if err != nil {
		return nil, errors.Transcription(EngineMLX, err)
	}

	res, err := m.runner.Run(ctx, m.command(payload, mlxScript))
	if err != nil {
		return nil, errors.Transcription(EngineMLX, err)
	}

	var out mlxResponse
	if err := json.Unmarshal(lastJSONLine(res.Stdout), &out); err != nil {
		return nil, errors.Transcription(EngineMLX, fmt.Errorf("decode helper output: %w", err))
	}
	if out.Language == "" {
		out.Language = cfg.Language
	}
	return newResult(out.Segments, out.Language), nil
}

func (m *MLX) command(stdin []byte, script string) process.Command {
	cmd := process.Command{
		Binary: m.python,
		Args:   []string{"-c", script},
		Env:    []string{"VIRTUAL_ENV=" + m.venv, "PYTHONIOENCODING=utf-8"},
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	return cmd
}

// lastJSONLine returns the last non-empty line of out; libraries sometimes
// print to stdout before the helper writes its result.
func lastJSONLine(out []byte) []byte {
	lines := bytes.Split(bytes.TrimSpace(out), []byte("\n"))
	for i := len(lines) - 1; i >= 0; i-- {
		if l := bytes.TrimSpace(lines[i]); len(l) > 0 {
			return l
		}
	}
	return nil
}
