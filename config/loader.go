package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads a configuration file and unmarshals it into the specified type.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func LoadConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg T
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		return &cfg, nil
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Override adjusts a loaded configuration, e.g. from command line flags.
type Override func(*Client)

// LoadClientConfig reads a client configuration file, applies the overrides,
// then applies defaults and validates the result.
// An empty path starts from a zero configuration.
func LoadClientConfig(path string, overrides ...Override) (*Client, error) {
	logger := log.With().Str("com", "config-loader").Logger()

	cfg := &Client{}
	if path != "" {
		loaded, err := LoadConfig[Client](path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	for _, override := range overrides {
		override(cfg)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("client configuration validation failed: %w", err)
	}

	logger.Info().
		Str("port", cfg.Serial.Port).
		Int("baud_rate", cfg.Serial.BaudRate).
		Msg("loaded client configuration")

	return cfg, nil
}
