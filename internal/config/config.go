package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the inatdl CLI.
type Config struct {
	Input     string        // path to the URL list, one URL per line
	Dest      string        // destination directory or bucket URL
	Timeout   time.Duration // per-attempt fetch timeout
	MinSize   int           // smallest payload accepted as an image, bytes
	Rate      float64       // max fetch starts per second, 0 = unpaced
	UserAgent string
	Progress  bool // live progress output
	Retry     RetryConfig
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts int           // total attempts per URL, first try included
	Delay    time.Duration // backoff unit between attempts
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Timeout:   30 * time.Second,
		MinSize:   100,
		UserAgent: "inatdl/1.0",
		Progress:  true,
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    2 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Input     string          `yaml:"input"`
	Dest      string          `yaml:"dest"`
	Timeout   string          `yaml:"timeout"`
	MinSize   *int            `yaml:"min_size"`
	Rate      float64         `yaml:"rate"`
	UserAgent string          `yaml:"user_agent"`
	Progress  *bool           `yaml:"progress"`
	Retry     yamlRetryConfig `yaml:"retry"`
}

type yamlRetryConfig struct {
	Attempts int    `yaml:"attempts"`
	Delay    string `yaml:"delay"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Input != "" {
		cfg.Input = yc.Input
	}
	if yc.Dest != "" {
		cfg.Dest = yc.Dest
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.MinSize != nil {
		cfg.MinSize = *yc.MinSize
	}
	if yc.Rate != 0 {
		cfg.Rate = yc.Rate
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	if yc.Progress != nil {
		cfg.Progress = *yc.Progress
	}
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}
	if yc.Retry.Delay != "" {
		d, err := time.ParseDuration(yc.Retry.Delay)
		if err != nil {
			return Config{}, fmt.Errorf("parse retry.delay: %w", err)
		}
		cfg.Retry.Delay = d
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the INATDL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("INATDL_INPUT"); v != "" {
		c.Input = v
	}
	if v := os.Getenv("INATDL_DEST"); v != "" {
		c.Dest = v
	}
	if v := os.Getenv("INATDL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("INATDL_MIN_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_MIN_SIZE: %w", err)
		}
		c.MinSize = n
	}
	if v := os.Getenv("INATDL_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse INATDL_RATE: %w", err)
		}
		c.Rate = f
	}
	if v := os.Getenv("INATDL_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("INATDL_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}
	if v := os.Getenv("INATDL_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}
	if v := os.Getenv("INATDL_RETRY_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_RETRY_DELAY: %w", err)
		}
		c.Retry.Delay = d
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("config: input is required")
	}
	if c.Dest == "" {
		return errors.New("config: dest is required")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.MinSize < 0 {
		return errors.New("config: min_size must not be negative")
	}
	if c.Rate < 0 {
		return errors.New("config: rate must not be negative")
	}
	if c.Retry.Attempts < 1 {
		return errors.New("config: retry.attempts must be at least 1")
	}
	if c.Retry.Delay < 0 {
		return errors.New("config: retry.delay must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Input != "" {
		c.Input = override.Input
	}
	if override.Dest != "" {
		c.Dest = override.Dest
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.Rate != 0 {
		c.Rate = override.Rate
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Delay != 0 {
		c.Retry.Delay = override.Retry.Delay
	}
	return c
}
