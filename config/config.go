// Package config loads the runner configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvLogLevel  = "ECACORE_LOG_LEVEL"
	EnvLogFormat = "ECACORE_LOG_FORMAT"
)

// Config is the complete runner configuration.
type Config struct {
	Content    string        `yaml:"content"`      // scene content directory
	TickRateHz int           `yaml:"tick_rate_hz"` // live runner tick source rate
	TickMs     float64       `yaml:"tick_ms"`      // elapsed time of a scripted tick with no argument
	SaveDir    string        `yaml:"save_dir"`     // empty uses ~/.ecacore/saves
	Log        LogConfig     `yaml:"log"`
	Metrics    MetricsConfig `yaml:"metrics"`
}

// LogConfig selects the logger level and formatter.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		TickRateHz: 30,
		TickMs:     1000.0 / 60,
		Log:        LogConfig{Level: "warn", Format: "text"},
		Metrics:    MetricsConfig{Addr: ":9464"},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if val := os.Getenv(EnvLogLevel); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv(EnvLogFormat); val != "" {
		c.Log.Format = val
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.TickRateHz <= 0 || c.TickRateHz > 1000 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be in 1..1000, got %d", c.TickRateHz))
	}
	if c.TickMs <= 0 {
		errs = append(errs, fmt.Errorf("tick_ms must be positive, got %v", c.TickMs))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}

// TickInterval is the live runner's tick period.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRateHz)
}
