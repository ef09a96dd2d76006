package testutil

import (
	"context"
	"io/fs"
	"testing"

	"gorm.io/gorm"

	"github.com/kbukum/lifescribe/database"
	"github.com/kbukum/lifescribe/logger"
)

// Database is an in-memory SQLite database migrated with the given schema.
type Database struct {
	*database.Component
	models []any
}

var _ TestComponent = (*Database)(nil)

// NewDatabase creates an in-memory SQLite component. fsys and dir hold SQL
// migrations and may be nil; models are auto-migrated and emptied by Reset.
func NewDatabase(fsys fs.FS, dir string, models ...any) *Database {
	cfg := database.Config{
		Driver:     database.DriverSQLite,
		DSN:        ":memory:",
		MaxRetries: 1,
		LogLevel:   "silent",
	}
	return &Database{
		Component: database.NewComponent(cfg, logger.NewDefault("test")).WithMigrations(fsys, dir, models...),
		models:    models,
	}
}

// Reset deletes every row of every model.
func (d *Database) Reset(ctx context.Context) error {
	return d.DB().WithTransaction(ctx, func(tx *gorm.DB) error {
		for _, m := range d.models {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SQLite starts a Database for the length of the test.
func SQLite(t testing.TB, fsys fs.FS, dir string, models ...any) *Database {
	t.Helper()
	db := NewDatabase(fsys, dir, models...)
	T(t).Setup(db)
	return db
}
