package provider

import "context"

// Provider is the base interface every engine backend implements.
type Provider interface {
	// Name returns the backend's registered name.
	Name() string
	// IsAvailable reports whether the backend can serve calls right now.
	IsAvailable(ctx context.Context) bool
}

// Closeable is implemented by backends that hold resources.
type Closeable interface {
	Close(ctx context.Context) error
}

// Factory builds a backend from typed configuration. It is the one place a
// backend may fail to initialize.
type Factory[C any, T Provider] func(ctx context.Context, cfg C) (T, error)

// Close closes p when it implements Closeable.
func Close(ctx context.Context, p Provider) error {
	if c, ok := p.(Closeable); ok {
		return c.Close(ctx)
	}
	return nil
}
