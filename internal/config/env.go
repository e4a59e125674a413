package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "KILLFOCUS"

// LoadFromEnv overlays KILLFOCUS_* environment variables on cfg.
// Unset variables keep the values already in cfg.
func LoadFromEnv(cfg *Config) error {
	sections := []interface{}{
		&cfg.Database,
		&cfg.Tracker,
		&cfg.Killer,
		&cfg.Daemon,
		&cfg.Web,
		&cfg.Logging,
	}

	for _, section := range sections {
		if err := envconfig.Process(envPrefix, section); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	return nil
}

// New creates a new Config with default values and loads from environment
func New() (*Config, error) {
	cfg := Default()
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewOrDefault is New without the error: a malformed environment yields
// the defaults.
func NewOrDefault() *Config {
	cfg, err := New()
	if err != nil {
		return Default()
	}
	return cfg
}
