package api

import (
	"fmt"

	"github.com/kbukum/lifescribe/auth"
)

// Config is the api section of the lifescribe config.
type Config struct {
	Host         string      `mapstructure:"host" json:"host"`
	Port         int         `mapstructure:"port" json:"port"`
	ReadTimeout  int         `mapstructure:"read_timeout" json:"read_timeout"`   // seconds
	WriteTimeout int         `mapstructure:"write_timeout" json:"write_timeout"` // seconds
	IdleTimeout  int         `mapstructure:"idle_timeout" json:"idle_timeout"`   // seconds
	MaxBodySize  string      `mapstructure:"max_body_size" json:"max_body_size"` // e.g. "1MB"
	CORS         CORSConfig  `mapstructure:"cors" json:"cors"`
	Auth         auth.Config `mapstructure:",squash" json:"auth"`
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 15
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 15
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "1MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	}
	c.Auth.ApplyDefaults()
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("api.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("api.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("api.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("api.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	return nil
}

// Addr returns host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
