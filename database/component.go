package database

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/kbukum/lifescribe/component"
	"github.com/kbukum/lifescribe/logger"
	"github.com/kbukum/lifescribe/util"
)

// Component opens the database on Start, migrates it and closes it on Stop.
type Component struct {
	db     *DB
	cfg    Config
	log    *logger.Logger
	fsys   fs.FS
	dir    string
	models []any
}

var _ component.Component = (*Component)(nil)

// NewComponent creates a database component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log}
}

// WithMigrations sets the schema Start brings up to date: SQL migrations
// in dir of fsys for postgres, models for sqlite.
func (c *Component) WithMigrations(fsys fs.FS, dir string, models ...any) *Component {
	c.fsys = fsys
	c.dir = dir
	c.models = append(c.models, models...)
	return c
}

// DB returns the open database, or nil before Start.
func (c *Component) DB() *DB { return c.db }

// Name returns the component name.
func (c *Component) Name() string { return "database" }

// Start connects and migrates.
func (c *Component) Start(ctx context.Context) error {
	db, err := Open(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	if c.fsys != nil || len(c.models) > 0 {
		if err := db.Migrate(ctx, c.fsys, c.dir, c.models...); err != nil {
			db.Close()
			return err
		}
	}
	c.db = db
	return nil
}

// Stop closes the connection pool.
func (c *Component) Stop(_ context.Context) error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Health pings the database.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	switch {
	case c.db == nil:
		h.Status = component.StatusUnhealthy
		h.Message = "not started"
	case c.db.PingContext(ctx) != nil:
		h.Status = component.StatusUnhealthy
		h.Message = "ping failed"
	}
	return h
}

// Describe summarizes the connection for the startup summary.
func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("pool=%d/%d", c.cfg.MaxOpenConns, c.cfg.MaxIdleConns)
	if c.cfg.Driver == DriverSQLite {
		details = c.cfg.DSN + " " + details
	} else if c.cfg.Host != "" {
		details = c.cfg.Host + ":" + c.cfg.Port + " " + details
	} else if c.cfg.DSN != "" {
		details = util.MaskDSN(c.cfg.DSN) + " " + details
	}
	return component.Description{Name: "Database", Type: c.cfg.Driver, Details: details}
}
