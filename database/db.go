package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/audiotranscriber/logger"
	"github.com/kbukum/audiotranscriber/resilience"
)

// DB wraps a GORM sqlite handle.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Open connects to the sqlite database named by cfg.DSN, retrying with
// backoff until the connection answers a ping or attempts run out.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, slowThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.InitialBackoff = time.Second
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		log.Warn("Database connection attempt failed, retrying", logger.Fields(
			"attempt", attempt, logger.FieldError, err.Error(), "backoff", backoff.String(),
		))
	}

	gdb, err := resilience.Retry(ctx, retry, func() (*gorm.DB, error) {
		gdb, err := gorm.Open(sqlite.Open(cfg.DSN), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return gdb, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", cfg.MaxRetries, err)
	}

	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, parseErr := time.ParseDuration(cfg.ConnMaxLifetime); parseErr == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}

	log.Info("Database connection established")
	return &DB{GormDB: gdb, log: log, cfg: cfg}, nil
}

// Close closes the underlying sql.DB connection pool. Safe to call multiple times.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	d.log.Info("Closing database connection")
	d.closed = true
	return sqlDB.Close()
}

// PingContext verifies the database connection is alive, respecting the context.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to the given context.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// Stats reports the connection pool state for health output.
func (d *DB) Stats() (open, inUse, idle int) {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return 0, 0, 0
	}
	s := sqlDB.Stats()
	return s.OpenConnections, s.InUse, s.Idle
}
