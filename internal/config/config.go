// Package config loads application configuration from a TOML file and
// environment variables, and derives the on-disk layout for the selected
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Environment selects the persisted-state variant. Production,
// development and fresh runs use different state files and database
// folders so they never step on each other; fresh additionally wipes its
// state at startup for deterministic test runs.
type Environment string

// Supported environments.
const (
	EnvProd  Environment = "prod"
	EnvDev   Environment = "dev"
	EnvFresh Environment = "fresh"
)

// Valid reports whether the environment is one of the supported values.
func (e Environment) Valid() bool {
	switch e {
	case EnvProd, EnvDev, EnvFresh:
		return true
	}
	return false
}

// Config represents the application configuration.
type Config struct {
	// Environment selects prod/dev/fresh state separation
	Environment Environment `toml:"environment"`

	// DataDir is the user-data root holding databases and app state
	DataDir string `toml:"data_dir"`

	Log   LogConfig   `toml:"log"`
	Audio AudioConfig `toml:"audio"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level"`  // DEBUG, INFO, WARN, ERROR
	Format string `toml:"format"` // "text" or "json"
}

// AudioConfig contains audio output settings.
type AudioConfig struct {
	// UseMock selects the simulated stream instead of a native output,
	// for tests and headless runs
	UseMock bool `toml:"use_mock"`
}

// Default returns a Config with sensible defaults. The data directory
// lives under the platform user-config dir.
func Default() Config {
	dataDir := "canto"
	if base, err := os.UserConfigDir(); err == nil {
		dataDir = filepath.Join(base, "canto")
	}
	return Config{
		Environment: EnvProd,
		DataDir:     dataDir,
		Log:         LogConfig{Level: "INFO", Format: "text"},
	}
}

// Load reads and parses a TOML configuration file, layered over the
// defaults. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.withEnvOverrides()
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg.withEnvOverrides()
}

// withEnvOverrides applies CANTO_* environment variables on top of the
// file values and validates the result.
func (c Config) withEnvOverrides() (Config, error) {
	if env := os.Getenv("CANTO_ENV"); env != "" {
		c.Environment = Environment(env)
	}
	if dir := os.Getenv("CANTO_DATA_DIR"); dir != "" {
		c.DataDir = dir
	}
	if level := os.Getenv("CANTO_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}

	if c.Environment == "" {
		c.Environment = EnvProd
	}
	if !c.Environment.Valid() {
		return c, fmt.Errorf("invalid environment %q", c.Environment)
	}
	return c, nil
}

// StateFile returns the path of the persisted UI-state blob for the
// selected environment.
func (c Config) StateFile() string {
	var name string
	switch c.Environment {
	case EnvDev:
		name = "appStateDev.json"
	case EnvFresh:
		name = "appStateFresh.json"
	default:
		name = "appState.json"
	}
	return filepath.Join(c.DataDir, name)
}

// DatabaseDir returns the root folder of the document stores for the
// selected environment. Each collection keeps its own subdirectory.
func (c Config) DatabaseDir() string {
	var name string
	switch c.Environment {
	case EnvDev:
		name = "databases_dev"
	case EnvFresh:
		name = "databases_fresh"
	default:
		name = "databases"
	}
	return filepath.Join(c.DataDir, name)
}
