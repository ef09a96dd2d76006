package database

import (
	"fmt"
	"strings"
	"time"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when the sqlite driver has no DSN.
const DefaultSQLitePath = "lifescribe.db"

// Config is the database section of the lifescribe config.
type Config struct {
	// Driver is "sqlite" or "postgres". Empty selects postgres when Host is
	// set and sqlite otherwise.
	Driver string `mapstructure:"driver"`

	// DSN is the full connection string. For postgres it may be left empty
	// and built from the discrete fields below.
	DSN string `mapstructure:"dsn"`

	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns int `mapstructure:"max_open_conns"`
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// ConnMaxLifetime is the maximum time a connection may be reused (e.g. "1h").
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	// ConnMaxIdleTime is the maximum time a connection may sit idle (e.g. "5m").
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`

	// MaxRetries is the number of connection attempts before giving up.
	MaxRetries int `mapstructure:"max_retries"`

	// SlowQueryThreshold is the duration above which queries are logged as slow (e.g. "200ms").
	SlowQueryThreshold string `mapstructure:"slow_query_threshold"`

	// LogLevel is the GORM log level: silent, error, warn or info.
	LogLevel string `mapstructure:"log_level"`
}

// ApplyDefaults sets defaults for zero-valued fields. SQLite gets a single
// connection so an in-memory database is shared by every query.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		if c.Host != "" {
			c.Driver = DriverPostgres
		} else {
			c.Driver = DriverSQLite
		}
	}
	c.Driver = strings.ToLower(c.Driver)

	switch c.Driver {
	case DriverSQLite:
		if c.DSN == "" {
			c.DSN = DefaultSQLitePath
		}
		if c.MaxOpenConns <= 0 {
			c.MaxOpenConns = 1
		}
		if c.MaxIdleConns <= 0 {
			c.MaxIdleConns = 1
		}
	case DriverPostgres:
		if c.Port == "" {
			c.Port = "5432"
		}
		if c.SSLMode == "" {
			c.SSLMode = "disable"
		}
		if c.MaxOpenConns <= 0 {
			c.MaxOpenConns = 25
		}
		if c.MaxIdleConns <= 0 {
			c.MaxIdleConns = 5
		}
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "1h"
	}
	if c.ConnMaxIdleTime == "" {
		c.ConnMaxIdleTime = "5m"
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.SlowQueryThreshold == "" {
		c.SlowQueryThreshold = "200ms"
	}
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
}

// ConnectionString returns the DSN, building a postgres keyword/value
// string from the discrete fields when DSN is empty.
func (c *Config) ConnectionString() string {
	if c.DSN != "" || c.Driver != DriverPostgres {
		return c.DSN
	}
	parts := []string{
		"host=" + c.Host,
		"port=" + c.Port,
		"dbname=" + c.Name,
		"user=" + c.User,
	}
	if c.Password != "" {
		parts = append(parts, "password="+c.Password)
	}
	parts = append(parts, "sslmode="+c.SSLMode)
	return strings.Join(parts, " ")
}

// Validate checks that required fields are present and parseable.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.DSN == "" {
			return fmt.Errorf("database dsn is required for sqlite")
		}
	case DriverPostgres:
		if c.DSN == "" && (c.Host == "" || c.Name == "" || c.User == "") {
			return fmt.Errorf("database dsn or host, name and user are required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns (%d) must be <= max_open_conns (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	for name, v := range map[string]string{
		"conn_max_lifetime":    c.ConnMaxLifetime,
		"conn_max_idle_time":   c.ConnMaxIdleTime,
		"slow_query_threshold": c.SlowQueryThreshold,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	switch c.LogLevel {
	case "silent", "error", "warn", "info":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}
