package agentguard

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Mode selects how telemetry is delivered.
type Mode string

const (
	// ModeAsync buffers events and flushes them in batches off the hot path.
	ModeAsync Mode = "async"
	// ModeSync verifies each event inline and blocks for the verdict.
	ModeSync Mode = "sync"
)

// ErrInvalidConfig tags configuration validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds guard settings. Zero values fall back to the defaults from
// DefaultConfig during New.
type Config struct {
	APIURL         string
	Mode           Mode
	FlushInterval  time.Duration
	FlushBatchSize int
	Timeout        time.Duration
	SpoolDir       string // when set, undelivered events are journaled here on Close
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		APIURL:         "https://api.agentguard.dev",
		Mode:           ModeAsync,
		FlushInterval:  time.Second,
		FlushBatchSize: 50,
		Timeout:        2 * time.Second,
	}
}

// fileConfig is the YAML shape of a config file. Durations are strings in
// time.ParseDuration format; unset fields keep their current values.
type fileConfig struct {
	APIURL         string `yaml:"api_url"`
	Mode           string `yaml:"mode"`
	FlushInterval  string `yaml:"flush_interval"`
	FlushBatchSize *int   `yaml:"flush_batch_size"`
	Timeout        string `yaml:"timeout"`
	SpoolDir       string `yaml:"spool_dir"`
}

// LoadConfig reads a YAML config file and overlays it on the defaults. A
// missing file yields the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("agentguard: read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("agentguard: parse config: %w", err)
	}

	if fc.APIURL != "" {
		cfg.APIURL = fc.APIURL
	}
	if fc.Mode != "" {
		cfg.Mode = Mode(fc.Mode)
	}
	if fc.FlushBatchSize != nil {
		cfg.FlushBatchSize = *fc.FlushBatchSize
	}
	if fc.SpoolDir != "" {
		cfg.SpoolDir = fc.SpoolDir
	}
	if fc.FlushInterval != "" {
		d, err := time.ParseDuration(fc.FlushInterval)
		if err != nil {
			return cfg, fmt.Errorf("agentguard: %w: flush_interval: %v", ErrInvalidConfig, err)
		}
		cfg.FlushInterval = d
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return cfg, fmt.Errorf("agentguard: %w: timeout: %v", ErrInvalidConfig, err)
		}
		cfg.Timeout = d
	}

	return cfg, nil
}

// withEnvOverrides overlays AGENTGUARD_* environment variables.
func (c Config) withEnvOverrides() Config {
	if v := os.Getenv("AGENTGUARD_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("AGENTGUARD_MODE"); v != "" {
		c.Mode = Mode(v)
	}
	return c
}

// Validate checks the config after all overlays have been applied.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("agentguard: %w: api_url is required", ErrInvalidConfig)
	}
	if c.Mode != ModeAsync && c.Mode != ModeSync {
		return fmt.Errorf("agentguard: %w: mode must be %q or %q, got %q", ErrInvalidConfig, ModeAsync, ModeSync, c.Mode)
	}
	if c.FlushBatchSize < 1 {
		return fmt.Errorf("agentguard: %w: flush_batch_size must be at least 1", ErrInvalidConfig)
	}
	if c.FlushInterval <= 0 {
		return fmt.Errorf("agentguard: %w: flush_interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("agentguard: %w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
