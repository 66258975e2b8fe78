package resilience

import (
	"context"
	"errors"
	"time"
)

// Common bulkhead errors.
var (
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead for logging.
	Name string
	// MaxConcurrent is the maximum number of concurrent calls.
	MaxConcurrent int
	// MaxWait bounds how long a caller waits for a slot. Zero waits until the
	// context is done.
	MaxWait time.Duration
	// OnReject is called when a caller gives up waiting.
	OnReject func(name string, err error)
}

// Bulkhead limits concurrent access to a shared resource such as an
// accelerator-bound engine.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead. MaxConcurrent defaults to 1.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn once a slot is free.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name, err)
		}
		return err
	}
	defer b.release()
	return fn()
}

// ExecuteWithResult runs a function that returns a value inside the bulkhead.
func ExecuteWithResult[T any](ctx context.Context, b *Bulkhead, fn func() (T, error)) (T, error) {
	var result T
	err := b.Execute(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	return result, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	var timeout <-chan time.Time
	if b.config.MaxWait > 0 {
		timer := time.NewTimer(b.config.MaxWait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timeout:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) release() {
	<-b.sem
}

// InUse returns the number of slots currently in use.
func (b *Bulkhead) InUse() int {
	return len(b.sem)
}

// MaxConcurrent returns the maximum concurrent calls allowed.
func (b *Bulkhead) MaxConcurrent() int {
	return b.config.MaxConcurrent
}
