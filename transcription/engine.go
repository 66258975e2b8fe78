package transcription

import (
	"context"
	"time"

	"github.com/kbukum/audiotranscriber/errors"
	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/process"
	"github.com/kbukum/audiotranscriber/provider"
	"github.com/kbukum/audiotranscriber/resilience"
)

// Engine names.
const (
	EngineMLX         = "mlx"
	EngineWhisperHTTP = "whisper_http"
)

// EngineConfig selects and configures a transcription engine.
type EngineConfig struct {
	// Engine is the registered engine name.
	Engine string `mapstructure:"engine" validate:"required"`

	// PythonVenvPath is the virtualenv holding mlx_whisper (mlx).
	PythonVenvPath string `mapstructure:"python_venv_path"`
	// SkipImportCheck skips the mlx_whisper import probe at open time (mlx).
	SkipImportCheck bool `mapstructure:"skip_import_check"`
	// Process bounds the python subprocesses (mlx).
	Process process.Config `mapstructure:"process"`

	// URL is the sidecar base URL (whisper_http).
	URL string `mapstructure:"url"`
	// Timeout bounds one sidecar request (whisper_http).
	Timeout time.Duration `mapstructure:"timeout"`
	// Retry governs retries of transient sidecar failures (whisper_http).
	Retry resilience.RetryConfig `mapstructure:"retry"`
	// CircuitBreaker guards the sidecar (whisper_http).
	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`

	Logger *logger.Logger `mapstructure:"-"`
}

// DefaultEngineConfig returns an mlx configuration using ./myenv.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Engine:         EngineMLX,
		PythonVenvPath: "./myenv",
		Process:        process.Config{MaxConcurrent: 1, GracePeriod: 10 * time.Second},
		URL:            defaultWhisperURL,
		Timeout:        defaultWhisperTimeout,
		Retry:          resilience.DefaultRetryConfig(),
		CircuitBreaker: resilience.DefaultCircuitBreakerConfig(EngineWhisperHTTP),
	}
}

func (c EngineConfig) log() *logger.Logger {
	if c.Logger == nil {
		return logger.NewNop()
	}
	return c.Logger
}

// Registry builds engines by name.
type Registry = provider.Registry[EngineConfig, Transcriber]

// NewRegistry returns a registry holding the built-in engines.
func NewRegistry() *Registry {
	reg := provider.NewRegistry[EngineConfig, Transcriber]()
	reg.RegisterFactory(EngineMLX, func(ctx context.Context, cfg EngineConfig) (Transcriber, error) {
		return NewMLX(ctx, cfg)
	})
	reg.RegisterFactory(EngineWhisperHTTP, func(_ context.Context, cfg EngineConfig) (Transcriber, error) {
		return NewWhisperHTTP(cfg), nil
	})
	return reg
}

// Open builds the configured built-in engine. It is the single fallible
// initialization step; any failure is a CONFIGURATION_ERROR.
func Open(ctx context.Context, cfg EngineConfig) (Transcriber, error) {
	return OpenWith(ctx, NewRegistry(), cfg)
}

// OpenWith builds the configured engine from reg.
func OpenWith(ctx context.Context, reg *Registry, cfg EngineConfig) (Transcriber, error) {
	if cfg.Engine == "" {
		return nil, errors.Configuration("transcription engine is not set")
	}
	if !reg.Has(cfg.Engine) {
		return nil, errors.Configuration("unknown transcription engine: " + cfg.Engine).
			WithDetail("available", reg.List())
	}
	t, err := reg.Create(ctx, cfg.Engine, cfg)
	if err != nil {
		if errors.IsFatal(err) {
			return nil, err
		}
		return nil, errors.Configuration("failed to open transcription engine " + cfg.Engine).WithCause(err)
	}
	cfg.log().Info("transcription engine ready", logger.Fields(logger.FieldEngine, t.Name()))
	return t, nil
}
