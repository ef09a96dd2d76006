package app

import (
	"fmt"
	"os"
	"time"

	"github.com/kbukum/lifescribe/api"
	"github.com/kbukum/lifescribe/artifacts"
	"github.com/kbukum/lifescribe/bulk"
	"github.com/kbukum/lifescribe/config"
	"github.com/kbukum/lifescribe/conversation"
	"github.com/kbukum/lifescribe/database"
	"github.com/kbukum/lifescribe/diarization/pyannote"
	"github.com/kbukum/lifescribe/diarization/rttmfile"
	"github.com/kbukum/lifescribe/ingest"
	"github.com/kbukum/lifescribe/observability"
	"github.com/kbukum/lifescribe/provider"
	"github.com/kbukum/lifescribe/storage"
	"github.com/kbukum/lifescribe/transcription/chunkfile"
	"github.com/kbukum/lifescribe/transcription/whisper"
	"github.com/kbukum/lifescribe/transcription/whisperx"
	"github.com/kbukum/lifescribe/validation"
)

// Name is the application name used for config discovery.
const Name = "lifescribe"

// ProviderConfig selects a backend. Every key besides provider and fallback
// is handed to the backend's factory.
type ProviderConfig struct {
	Provider string `mapstructure:"provider"`
	// Fallback lists backends tried in order when Provider is unavailable.
	Fallback []string          `mapstructure:"fallback"`
	Settings provider.Settings `mapstructure:",remain"`
}

// Order returns Provider followed by the fallbacks, without repeats.
func (c ProviderConfig) Order() []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range append([]string{c.Provider}, c.Fallback...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ConversationConfig controls conversation numbering.
type ConversationConfig struct {
	// Gap is the silence after which a new conversation starts.
	Gap time.Duration `mapstructure:"gap"`
}

// Config is the full lifescribe configuration.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	Transcription ProviderConfig       `mapstructure:"transcription"`
	Diarization   ProviderConfig       `mapstructure:"diarization"`
	Artifacts     artifacts.Config     `mapstructure:"artifacts"`
	Storage       storage.Config       `mapstructure:"storage"`
	Database      database.Config      `mapstructure:"database"`
	Conversation  ConversationConfig   `mapstructure:"conversation"`
	Ingest        ingest.Config        `mapstructure:"ingest"`
	Bulk          bulk.Config          `mapstructure:"bulk"`
	API           api.Config           `mapstructure:"api"`
	Observability observability.Config `mapstructure:"observability"`
}

// ApplyDefaults fills unset fields of every section.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()

	if c.Transcription.Provider == "" {
		c.Transcription.Provider = whisper.ProviderName
	}
	if c.Diarization.Provider == "" {
		c.Diarization.Provider = pyannote.ProviderName
	}
	if c.Transcription.Settings == nil {
		c.Transcription.Settings = provider.Settings{}
	}
	if c.Diarization.Settings == nil {
		c.Diarization.Settings = provider.Settings{}
	}

	c.Storage.ApplyDefaults()
	c.Database.ApplyDefaults()

	if c.Conversation.Gap <= 0 {
		c.Conversation.Gap = conversation.DefaultGap
	}
	if c.Ingest.ConversationGap <= 0 {
		c.Ingest.ConversationGap = c.Conversation.Gap
	}
	c.Ingest.ApplyDefaults()
	c.Bulk.ApplyDefaults()
	c.API.ApplyDefaults()
	c.Observability.ApplyDefaults()
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	for _, name := range c.Transcription.Order() {
		if err := validation.OneOf("transcription.provider", name, transcriptionBackends...); err != nil {
			return err
		}
	}
	for _, name := range c.Diarization.Order() {
		if err := validation.OneOf("diarization.provider", name, diarizationBackends...); err != nil {
			return err
		}
	}
	if c.Artifacts.Enabled {
		if err := c.Storage.Validate(); err != nil {
			return err
		}
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(&c.Bulk); err != nil {
		return err
	}
	if err := c.API.Validate(); err != nil {
		return err
	}
	if c.Observability.SampleRate < 0 || c.Observability.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be between 0 and 1 (got: %v)", c.Observability.SampleRate)
	}
	return nil
}

var (
	transcriptionBackends = []string{whisper.ProviderName, whisperx.ProviderName, chunkfile.ProviderName}
	diarizationBackends   = []string{pyannote.ProviderName, rttmfile.ProviderName}
)

// EnvAliases maps the legacy environment variables onto config keys.
var EnvAliases = map[string]string{
	"HF_TOKEN":    "diarization.hf_token",
	"DB_HOST":     "database.host",
	"DB_PORT":     "database.port",
	"DB_NAME":     "database.name",
	"DB_USER":     "database.user",
	"DB_PASSWORD": "database.password",
	"LOG_LEVEL":   "logging.level",
}

// Load reads the config file at path, or the discovered one when path is
// empty, then the .env file and the environment. bootstrap.NewApp applies
// the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	opts := []config.LoaderOption{config.WithEnvAliases(EnvAliases)}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		opts = append(opts, config.WithConfigFile(path))
	}
	if _, err := config.LoadConfig(Name, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
