package storage

import (
	"fmt"
	"sync"

	"github.com/kbukum/audiotranscriber/logger"
)

// Factory creates a Storage backend from config.
type Factory func(cfg Config, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a storage backend factory for the given provider name.
// Backend packages call this from init.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// New creates the Storage selected by cfg.Provider, wrapped with the
// configured key prefix and size limit. The backend package must have been
// imported so its factory is registered.
func New(cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := log.WithComponent("storage")

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	l.Info("initializing storage", logger.Fields("provider", cfg.Provider, "prefix", cfg.Prefix))
	backend, err := f(cfg, l)
	if err != nil {
		return nil, err
	}
	return NewPrefixed(backend, cfg.Prefix, cfg.MaxFileSize), nil
}
