// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Player    PlayerConfig    `yaml:"player"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Transport TransportConfig `yaml:"transport"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig represents the HTTP control surface configuration.
type ServerConfig struct {
	Addr string `yaml:"addr" default:":8080"`
}

// PlayerConfig represents playback cursor configuration.
type PlayerConfig struct {
	PreloadCount int  `yaml:"preload_count" default:"2" validate:"gte=0,lte=16"`
	HistoryLimit int  `yaml:"history_limit" default:"100" validate:"gte=1,lte=10000"`
	Loop         bool `yaml:"loop"`
}

// ResolverConfig represents the metadata resolver configuration.
type ResolverConfig struct {
	BaseURL   string `yaml:"base_url" validate:"required,url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000" validate:"gte=100,lte=120000"`
	HeadProbe bool   `yaml:"head_probe"`
}

// TransportConfig selects and configures the audio backend. Settings are
// backend-specific and decoded by the backend itself.
type TransportConfig struct {
	Type     string         `yaml:"type" default:"speaker" validate:"required"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stdout"`
}

// Load loads configuration from a YAML file. Environment variables take
// precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("AMPLFR_BASE_URL"); v != "" {
		c.Resolver.BaseURL = v
	}
	if v := os.Getenv("AMPLFR_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// ResolverTimeout returns the resolver timeout as a duration.
func (c *Config) ResolverTimeout() time.Duration {
	return time.Duration(c.Resolver.TimeoutMs) * time.Millisecond
}
