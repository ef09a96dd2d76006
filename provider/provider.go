package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kbukum/lifescribe/security"
)

// Provider is the base interface all backends implement.
type Provider interface {
	// Name returns the backend's registered name.
	Name() string
	// IsAvailable reports whether the backend can take a request now.
	IsAvailable(ctx context.Context) bool
}

// Factory creates a backend from its config section.
type Factory[T Provider] func(cfg Settings) (T, error)

// Settings is one backend's config section as decoded by viper. Values
// arriving from environment variables are strings, so the accessors parse
// them as well as the native types.
type Settings map[string]any

// String returns the value for key, or "" if unset.
func (s Settings) String(key string) string {
	switch v := s[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Int returns the value for key, or 0 if unset or unparsable.
func (s Settings) Int(key string) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Bool returns the value for key, or false if unset or unparsable.
func (s Settings) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	default:
		return false
	}
}

// Duration returns the value for key. Strings use time.ParseDuration and
// bare numbers are seconds.
func (s Settings) Duration(key string) time.Duration {
	switch v := s[key].(type) {
	case time.Duration:
		return v
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(n * float64(time.Second))
		}
	}
	return 0
}

// Sub returns the nested section key, or an empty Settings.
func (s Settings) Sub(key string) Settings {
	switch v := s[key].(type) {
	case Settings:
		return v
	case map[string]any:
		return Settings(v)
	default:
		return Settings{}
	}
}

// TLS reads a sidecar TLS section: skip_verify, ca_file, cert_file,
// key_file and server_name.
func (s Settings) TLS(key string) security.TLSConfig {
	t := s.Sub(key)
	return security.TLSConfig{
		SkipVerify: t.Bool("skip_verify"),
		CAFile:     t.String("ca_file"),
		CertFile:   t.String("cert_file"),
		KeyFile:    t.String("key_file"),
		ServerName: t.String("server_name"),
	}
}
