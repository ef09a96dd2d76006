package database

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/kbukum/lifescribe/database/migration"
	"github.com/kbukum/lifescribe/errors"
	"github.com/kbukum/lifescribe/logger"
)

// DB wraps a GORM database with lifescribe logging.
type DB struct {
	GormDB *gorm.DB
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// Dialector returns the GORM dialector for cfg.Driver.
func Dialector(cfg Config) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite.Open(cfg.ConnectionString()), nil
	case DriverPostgres:
		return postgres.Open(cfg.ConnectionString()), nil
	default:
		return nil, errors.InvalidInput("database.driver", fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
}

// Open applies defaults, validates cfg and connects.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.InvalidInput("database", err.Error()).WithCause(err)
	}
	d, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithContext(ctx, d, cfg, log)
}

// NewWithContext connects through dialector, retrying with a linear backoff
// until cfg.MaxRetries attempts have failed or ctx is done.
func NewWithContext(ctx context.Context, dialector gorm.Dialector, cfg Config, log *logger.Logger) (*DB, error) {
	cfg.ApplyDefaults()
	log = log.WithComponent("database")

	slowThreshold, _ := time.ParseDuration(cfg.SlowQueryThreshold)
	gormCfg := &gorm.Config{
		Logger:         newGormLogger(log, slowThreshold, parseLogLevel(cfg.LogLevel)),
		TranslateError: true,
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, errors.ConnectionFailed("database").WithCause(ctx.Err())
		}

		var db *gorm.DB
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			err = configurePool(ctx, db, cfg)
			if err == nil {
				log.Info("database connection established", logger.Fields(
					"driver", cfg.Driver,
					logger.FieldAttempt, attempt,
				))
				return &DB{GormDB: db, log: log, cfg: cfg}, nil
			}
		}

		if attempt < cfg.MaxRetries {
			backoff := time.Duration(attempt) * time.Second
			log.Warn("database connection attempt failed, retrying", logger.Fields(
				logger.FieldAttempt, attempt,
				logger.FieldError, err.Error(),
				"backoff", backoff.String(),
			))
			if waitErr := contextSleep(ctx, backoff); waitErr != nil {
				return nil, errors.ConnectionFailed("database").WithCause(waitErr)
			}
		}
	}

	return nil, errors.ConnectionFailed("database").
		WithCause(err).
		WithDetail("attempts", cfg.MaxRetries)
}

func configurePool(ctx context.Context, db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	if lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime); err == nil {
		sqlDB.SetConnMaxLifetime(lifetime)
	}
	if idle, err := time.ParseDuration(cfg.ConnMaxIdleTime); err == nil {
		sqlDB.SetConnMaxIdleTime(idle)
	}
	return nil
}

func contextSleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Driver returns the configured driver name.
func (d *DB) Driver() string { return d.cfg.Driver }

// Close closes the connection pool. Safe to call multiple times.
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
	d.closed = true
	d.log.Debug("closing database connection")
	return sqlDB.Close()
}

// PingContext verifies the connection is alive.
func (d *DB) PingContext(ctx context.Context) error {
	sqlDB, err := d.GormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithContext returns a GORM session scoped to ctx.
func (d *DB) WithContext(ctx context.Context) *gorm.DB {
	return d.GormDB.WithContext(ctx)
}

// TransactionFunc runs inside a transaction.
type TransactionFunc func(tx *gorm.DB) error

// WithTransaction runs fn in a transaction. An error from fn or a panic
// rolls back; the panic is re-raised after the rollback.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx := d.GormDB.WithContext(ctx).Begin()
	if tx.Error != nil {
		return FromDatabase(tx.Error, "transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			d.log.Error("transaction rolled back due to panic", logger.Fields("panic", fmt.Sprintf("%v", r)))
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			d.log.Warn("rollback failed", logger.Fields(logger.FieldError, rbErr.Error()))
		}
		return err
	}
	if err := tx.Commit().Error; err != nil {
		return FromDatabase(err, "transaction")
	}
	return nil
}

// Migrate brings the schema up to date. Postgres applies the SQL migrations
// found in dir of fsys; SQLite auto-migrates models.
func (d *DB) Migrate(ctx context.Context, fsys fs.FS, dir string, models ...any) error {
	start := time.Now()
	var err error
	switch d.cfg.Driver {
	case DriverPostgres:
		err = migration.MigrateUp(d.GormDB, fsys, dir, migration.Postgres)
	default:
		err = d.GormDB.WithContext(ctx).AutoMigrate(models...)
	}
	if err != nil {
		return errors.DatabaseError(err).WithDetail("operation", "migrate")
	}
	d.log.Info("schema up to date", logger.DurationFields("migrate", time.Since(start)))
	return nil
}

// Name implements provider.Provider.
func (d *DB) Name() string { return d.cfg.Driver }

// IsAvailable reports whether the connection answers a ping.
func (d *DB) IsAvailable(ctx context.Context) bool {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return false
	}
	return d.PingContext(ctx) == nil
}
