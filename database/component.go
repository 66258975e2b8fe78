package database

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kbukum/audiotranscriber/component"
	"github.com/kbukum/audiotranscriber/database/migration"
	"github.com/kbukum/audiotranscriber/logger"
)

// Component opens the ledger database, applies migrations and exposes the
// Ledger once started.
type Component struct {
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	db     *DB
	ledger *Ledger
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a database component for use with the component registry.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("database")}
}

// Ledger returns the dead-letter ledger, or nil if not started.
func (c *Component) Ledger() *Ledger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ledger
}

// DB returns the underlying *DB, or nil if not started.
func (c *Component) DB() *DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects to the database and applies pending migrations.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("database start: %w", err)
	}
	if c.cfg.Migrate {
		if err := migration.MigrateUp(db.GormDB, migrationsFS, MigrationsPath, migration.SQLite); err != nil {
			_ = db.Close()
			return fmt.Errorf("database migrate: %w", err)
		}
		version, _, _ := migration.MigrateVersion(db.GormDB, migrationsFS, MigrationsPath, migration.SQLite)
		c.log.Info("Ledger schema ready", logger.Fields("version", version))
	}

	c.mu.Lock()
	c.db = db
	c.ledger = NewLedger(db, c.log)
	c.mu.Unlock()
	return nil
}

// Stop closes the database connection.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	db := c.db
	c.db, c.ledger = nil, nil
	c.mu.Unlock()
	if db == nil {
		return nil
	}
	return db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	db := c.DB()
	if db == nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "database not initialized",
		}
	}

	if err := db.PingContext(ctx); err != nil {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: fmt.Sprintf("ping failed: %v", err),
		}
	}

	open, inUse, idle := db.Stats()
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("conns open=%d in_use=%d idle=%d", open, inUse, idle),
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("dsn=%s pool=%d/%d", redactDSN(c.cfg.DSN), c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.Migrate {
		details += " migrate=on"
	}
	return component.Description{
		Name:    "Dead-letter ledger",
		Type:    "database",
		Details: details,
	}
}

// redactDSN drops query parameters, which may carry credentials.
func redactDSN(dsn string) string {
	if i := strings.IndexByte(dsn, '?'); i >= 0 {
		return dsn[:i]
	}
	return dsn
}
