package process

import (
	"context"
	"time"

	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/resilience"
)

// Config bounds subprocess execution for one engine.
type Config struct {
	// MaxConcurrent caps simultaneous subprocesses. Defaults to 1.
	MaxConcurrent int `mapstructure:"max_concurrent"`
	// Timeout bounds a single run. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
	// GracePeriod is the SIGTERM to SIGKILL wait.
	GracePeriod time.Duration `mapstructure:"grace_period"`
}

// Runner executes commands for one engine. Calls beyond MaxConcurrent wait
// for a slot rather than fail.
type Runner struct {
	name     string
	cfg      Config
	bulkhead *resilience.Bulkhead
	log      *logger.Logger
}

// NewRunner creates a Runner. A nil log discards output.
func NewRunner(name string, cfg Config, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.NewNop()
	}
	return &Runner{
		name: name,
		cfg:  cfg,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          name,
			MaxConcurrent: cfg.MaxConcurrent,
		}),
		log: log.WithComponent("process." + name),
	}
}

// Run waits for a slot, then runs cmd under the configured timeout.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.GracePeriod == 0 {
		cmd.GracePeriod = r.cfg.GracePeriod
	}
	return resilience.ExecuteWithResult(ctx, r.bulkhead, func() (*Result, error) {
		runCtx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}
		res, err := Run(runCtx, cmd)
		fields := logger.Fields(logger.FieldOperation, cmd.Binary)
		if res != nil {
			fields[logger.FieldDuration] = res.Duration.Milliseconds()
			fields["exit_code"] = res.ExitCode
		}
		if err != nil {
			r.log.WithError(err).Debug("subprocess failed", fields)
		} else {
			r.log.Debug("subprocess finished", fields)
		}
		return res, err
	})
}

// InUse returns the number of running subprocesses.
func (r *Runner) InUse() int { return r.bulkhead.InUse() }
