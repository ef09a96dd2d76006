package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	cfg := ServiceConfig{Debug: true}
	cfg.ApplyDefaults()
	if cfg.Name != "lifescribe" {
		t.Errorf("expected default name, got %q", cfg.Name)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected 'development', got %q", cfg.Environment)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("debug should lower the log level, got %q", cfg.Logging.Level)
	}
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		c := ServiceConfig{Name: "svc"}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*ServiceConfig)
		wantErr string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "config.name is required"},
		{"bad environment", func(c *ServiceConfig) { c.Environment = "qa" }, "config.environment must be one of"},
		{"bad logging", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

type testConfig struct {
	ServiceConfig `mapstructure:",squash"`
	Transcription struct {
		URL   string `mapstructure:"url"`
		Model string `mapstructure:"model"`
	} `mapstructure:"transcription"`
	Diarization struct {
		HFToken string `mapstructure:"hf_token"`
	} `mapstructure:"diarization"`
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	yamlContent := `
name: lifescribe-test
environment: staging
transcription:
  url: http://whisper:8387
  model: large-v3
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg testConfig
	files, err := LoadConfig("lifescribe", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if files.ConfigFile != configPath {
		t.Errorf("expected resolved config %q, got %q", configPath, files.ConfigFile)
	}
	if cfg.Name != "lifescribe-test" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.Transcription.Model != "large-v3" {
		t.Errorf("expected model large-v3, got %q", cfg.Transcription.Model)
	}
}

func TestLoadConfigEnvOverridesAndAliases(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("transcription:\n  url: http://file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TRANSCRIPTION_URL", "http://env")
	t.Setenv("HF_TOKEN", "hf_secret")

	var cfg testConfig
	_, err := LoadConfig("lifescribe", &cfg,
		WithConfigFile(configPath),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithEnvAliases(map[string]string{"HF_TOKEN": "diarization.hf_token"}),
	)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Transcription.URL != "http://env" {
		t.Errorf("expected env override, got %q", cfg.Transcription.URL)
	}
	if cfg.Diarization.HFToken != "hf_secret" {
		t.Errorf("expected alias to populate hf_token, got %q", cfg.Diarization.HFToken)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("TRANSCRIPTION_MODEL=tiny\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	defer os.Unsetenv("TRANSCRIPTION_MODEL")

	var cfg testConfig
	files, err := LoadConfig("lifescribe", &cfg, WithConfigFile(filepath.Join(dir, "none.yml")), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if files.EnvFile != envPath {
		t.Errorf("expected env file to be reported, got %q", files.EnvFile)
	}
	if files.ConfigFile != "" {
		t.Errorf("missing config file should resolve to empty, got %q", files.ConfigFile)
	}
	if cfg.Transcription.Model != "tiny" {
		t.Errorf("expected model from .env, got %q", cfg.Transcription.Model)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg testConfig
	if _, err := LoadConfig("lifescribe", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvFile("/nonexistent/.env")); err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("name: [unterminated\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var cfg testConfig
	if _, err := LoadConfig("lifescribe", &cfg, WithConfigFile(configPath)); err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

type mockFS struct {
	files     map[string]bool
	configDir string
}

func (m *mockFS) Exists(path string) bool        { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error      { return nil }
func (m *mockFS) UserConfigDir() (string, error) { return m.configDir, nil }

func TestResolverSearchOrder(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]bool
		wantConfig string
		wantEnv    string
	}{
		{
			name:       "working directory wins",
			files:      map[string]bool{"config.yml": true, filepath.Join("config", "config.yml"): true, ".env": true},
			wantConfig: "config.yml",
			wantEnv:    ".env",
		},
		{
			name:       "app specific env file",
			files:      map[string]bool{".env.lifescribe": true, ".env": true},
			wantConfig: "",
			wantEnv:    ".env.lifescribe",
		},
		{
			name:       "user config dir",
			files:      map[string]bool{filepath.Join("/home/u/.config", "lifescribe", "config.yaml"): true},
			wantConfig: filepath.Join("/home/u/.config", "lifescribe", "config.yaml"),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := &Resolver{FileSystem: &mockFS{files: tc.files, configDir: "/home/u/.config"}}
			got := r.ResolveFiles("lifescribe", LoaderConfig{})
			if got.ConfigFile != tc.wantConfig {
				t.Errorf("config: expected %q, got %q", tc.wantConfig, got.ConfigFile)
			}
			if got.EnvFile != tc.wantEnv {
				t.Errorf("env: expected %q, got %q", tc.wantEnv, got.EnvFile)
			}
		})
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	got := generateEnvKeyVariants("DATABASE_MAX_OPEN_CONNS")
	want := map[string]bool{
		"database_max_open_conns": false,
		"database.max_open_conns": false,
		"database.max.open.conns": false,
	}
	for _, v := range got {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("expected variant %q in %v", k, got)
		}
	}
	if single := generateEnvKeyVariants("DEBUG"); len(single) != 1 || single[0] != "debug" {
		t.Errorf("unexpected variants for DEBUG: %v", single)
	}
}
