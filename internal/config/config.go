// Package config loads taskmanager settings from defaults, an optional TOML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"taskmanager/internal/store"
)

// DefaultConfigFile is read from the working directory when no explicit
// config path is given.
const DefaultConfigFile = "taskmanager.toml"

// Config holds runtime settings.
type Config struct {
	Addr      string `toml:"addr"`
	DataFile  string `toml:"data_file"`
	Backend   string `toml:"backend"` // "json", "yaml", "sqlite"; inferred from data_file when empty
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Addr:      ":8080",
		DataFile:  "tasks.json",
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds a Config from defaults, then the TOML file at path (or
// DefaultConfigFile if path is empty and it exists), then environment
// variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if port := getEnv("PORT", ""); port != "" {
		cfg.Addr = ":" + port
	}
	cfg.DataFile = getEnv("TASKS_FILE", cfg.DataFile)
	cfg.Backend = getEnv("TASKS_BACKEND", cfg.Backend)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
}

// Validate checks that the settings are usable.
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return errors.New("data_file is required")
	}

	switch c.Backend {
	case "", store.KindJSON, store.KindYAML, store.KindSQLite:
	default:
		return fmt.Errorf("backend must be 'json', 'yaml', or 'sqlite', got %q", c.Backend)
	}

	return nil
}

// BackendKind returns the configured backend, inferring it from the data
// file extension when unset.
func (c *Config) BackendKind() string {
	if c.Backend != "" {
		return c.Backend
	}
	return store.KindForPath(c.DataFile)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
