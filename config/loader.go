// Package config loads lifescribe configuration from a YAML file, a .env file
// and the process environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file lookups the loader performs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	UserConfigDir() (string, error)
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv loads a dotenv file without overriding variables already set.
func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

func (rfs *RealFileSystem) UserConfigDir() (string, error) {
	return os.UserConfigDir()
}

// Resolver finds the config and env files for an application.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when provided and searches otherwise.
func (r *Resolver) ResolveFiles(appName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = r.firstExisting(r.configCandidates(appName))
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = r.firstExisting([]string{
			fmt.Sprintf(".env.%s", appName),
			".env",
			filepath.Join("config", ".env"),
		})
	}
	return resolved
}

func (r *Resolver) configCandidates(appName string) []string {
	paths := []string{
		"config.yml",
		"config.yaml",
		filepath.Join("config", "config.yml"),
		filepath.Join("config", "config.yaml"),
		filepath.Join("cmd", appName, "config.yml"),
	}
	if dir, err := r.FileSystem.UserConfigDir(); err == nil && dir != "" {
		paths = append(paths,
			filepath.Join(dir, appName, "config.yml"),
			filepath.Join(dir, appName, "config.yaml"),
		)
	}
	return paths
}

func (r *Resolver) firstExisting(paths []string) string {
	for _, path := range paths {
		if r.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// Aliases maps legacy environment variable names onto config keys,
	// e.g. HF_TOKEN -> diarization.hf_token.
	Aliases map[string]string
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvAliases registers legacy variable names that feed config keys.
func WithEnvAliases(aliases map[string]string) LoaderOption {
	return func(lc *LoaderConfig) {
		if lc.Aliases == nil {
			lc.Aliases = make(map[string]string, len(aliases))
		}
		for env, key := range aliases {
			lc.Aliases[env] = key
		}
	}
}

// LoadConfig loads configuration for appName into cfg. A missing config file
// is not an error; an unreadable one is.
func LoadConfig(appName string, cfg interface{}, opts ...LoaderOption) (ResolvedFiles, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(appName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return files, fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	} else {
		files.ConfigFile = ""
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return files, fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	} else {
		files.EnvFile = ""
	}

	bindEnv(v, os.Environ(), lc.Aliases)

	if err := v.Unmarshal(cfg); err != nil {
		return files, fmt.Errorf("unmarshal config for %s: %w", appName, err)
	}
	return files, nil
}

// bindEnv copies environment variables into v. Only variables whose key
// variant matches a key already known to v (from the config file or an alias)
// are applied, so unrelated variables like PATH never leak into the struct.
func bindEnv(v *viper.Viper, environ []string, aliases map[string]string) {
	known := make(map[string]bool)
	for _, key := range v.AllKeys() {
		known[key] = true
	}

	for _, env := range environ {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		name, value := pair[0], pair[1]

		if key, ok := aliases[name]; ok && value != "" {
			v.Set(key, value)
		}

		for _, variant := range generateEnvKeyVariants(name) {
			if known[variant] || isNestedKey(variant, known) {
				v.Set(variant, value)
			}
		}
	}
}

// isNestedKey accepts dotted variants whose first segment is a known section,
// so TRANSCRIPTION_URL lands on transcription.url even when the YAML file
// omitted that key.
func isNestedKey(variant string, known map[string]bool) bool {
	idx := strings.Index(variant, ".")
	if idx <= 0 {
		return false
	}
	section := variant[:idx]
	for key := range known {
		if strings.HasPrefix(key, section+".") {
			return true
		}
	}
	return knownSections[section]
}

// knownSections lists the top-level config sections that environment
// variables may populate even when the YAML file is absent.
var knownSections = map[string]bool{
	"logging":       true,
	"transcription": true,
	"diarization":   true,
	"artifacts":     true,
	"storage":       true,
	"database":      true,
	"conversation":  true,
	"ingest":        true,
	"bulk":          true,
	"api":           true,
	"observability": true,
}

// generateEnvKeyVariants creates the candidate config keys for an
// environment variable name.
//
//	DATABASE_MAX_OPEN_CONNS -> [database_max_open_conns, database.max.open.conns,
//	                            database.max_open_conns, database.max.open_conns, ...]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")
	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], ".")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}
	return removeDuplicates(variants)
}

func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}
