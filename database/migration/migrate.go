// Package migration applies versioned SQL migrations with golang-migrate.
//
// Migration files live in an fs.FS (usually an embed.FS) and follow the
// VERSION_name.up.sql / VERSION_name.down.sql naming. The migrator shares the
// GORM connection pool and never closes it.
package migration

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

// DriverFunc creates a migrate database driver for an open sql.DB.
type DriverFunc func(*sql.DB) (database.Driver, error)

// Postgres is the DriverFunc for PostgreSQL.
func Postgres(db *sql.DB) (database.Driver, error) {
	return migratepg.WithInstance(db, &migratepg.Config{})
}

// MigrateUp applies all pending migrations. No pending migrations is not
// an error.
func MigrateUp(gormDB *gorm.DB, fsys fs.FS, dir string, driverFunc DriverFunc) error {
	m, err := newMigrator(gormDB, fsys, dir, driverFunc)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back every applied migration.
func MigrateDown(gormDB *gorm.DB, fsys fs.FS, dir string, driverFunc DriverFunc) error {
	m, err := newMigrator(gormDB, fsys, dir, driverFunc)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the current schema version and dirty flag. A database
// without any applied migration reports version 0.
func Version(gormDB *gorm.DB, fsys fs.FS, dir string, driverFunc DriverFunc) (uint, bool, error) {
	m, err := newMigrator(gormDB, fsys, dir, driverFunc)
	if err != nil {
		return 0, false, err
	}
	v, dirty, err := m.Version()
	if stderrors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// newMigrator builds a migrator on the GORM pool. Callers must not call
// Close on it: that would close the shared sql.DB.
func newMigrator(gormDB *gorm.DB, fsys fs.FS, dir string, driverFunc DriverFunc) (*migrate.Migrate, error) {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	driver, err := driverFunc(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "lifescribe", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}
