// Package config handles TOML-based configuration loading and validation
// for the resolver service.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all service configuration.
type Config struct {
	Addr           string `toml:"addr"`
	DBPath         string `toml:"db_path"`
	ExtractTimeout int    `toml:"extract_timeout_seconds"`
	DailyLimit     int64  `toml:"daily_limit"`
	PurgeInterval  int    `toml:"purge_interval_minutes"`
	LogLevel       string `toml:"log_level"`
	LogJSON        bool   `toml:"log_json"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		DBPath:         "resolver.db",
		ExtractTimeout: 60,
		DailyLimit:     0, // 0 selects the built-in anonymous limit
		PurgeInterval:  60,
		LogLevel:       "info",
		LogJSON:        false,
	}
}

// Load reads the config file at path and merges it over the defaults.
// A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}
	if c.ExtractTimeout < 0 {
		return fmt.Errorf("extract_timeout_seconds must not be negative")
	}
	if c.DailyLimit < 0 {
		return fmt.Errorf("daily_limit must not be negative")
	}
	if c.PurgeInterval < 0 {
		return fmt.Errorf("purge_interval_minutes must not be negative")
	}
	return nil
}

// ExtractTimeoutDuration returns the extraction timeout as a duration.
func (c *Config) ExtractTimeoutDuration() time.Duration {
	return time.Duration(c.ExtractTimeout) * time.Second
}

// PurgeIntervalDuration returns the counter purge interval as a duration.
func (c *Config) PurgeIntervalDuration() time.Duration {
	return time.Duration(c.PurgeInterval) * time.Minute
}
