// Package config loads and validates the optional .fleet YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for fleet configuration.
const (
	DefaultMaxParallel       = 2
	DefaultAgent             = "phone-agent"
	DefaultADB               = "adb"
	DefaultCaptureTimeout    = 10 * time.Second
	DefaultCaptureRetryDelay = 1 * time.Second
)

// Config holds the parsed .fleet configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version        int           `yaml:"version"`
	RawAgent       []string      `yaml:"agent"`        // agent argv prefix, e.g. [phone-agent] or [python, -u, main.py]
	RawADB         string        `yaml:"adb"`          // adb binary, resolved via PATH
	RawMaxParallel int           `yaml:"max_parallel"` // default limiter capacity
	Capture        CaptureConfig `yaml:"capture"`
}

// CaptureConfig controls the screenshot collaborator.
type CaptureConfig struct {
	RawTimeout string `yaml:"timeout"` // e.g. "10s"
}

// Agent returns the configured agent argv prefix or the default.
func (c *Config) Agent() []string {
	if len(c.RawAgent) > 0 {
		return append([]string(nil), c.RawAgent...)
	}
	return []string{DefaultAgent}
}

// ADB returns the configured adb binary name or the default.
func (c *Config) ADB() string {
	if c.RawADB != "" {
		return c.RawADB
	}
	return DefaultADB
}

// MaxParallel returns the configured default limiter capacity,
// coerced to at least 1.
func (c *Config) MaxParallel() int {
	if c.RawMaxParallel > 0 {
		return c.RawMaxParallel
	}
	return DefaultMaxParallel
}

// CaptureTimeout returns the configured screenshot timeout or the default.
func (c *Config) CaptureTimeout() time.Duration {
	if c.Capture.RawTimeout != "" {
		d, err := time.ParseDuration(c.Capture.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultCaptureTimeout
}

// Load reads the .fleet file by walking upward from dir. If no .fleet file
// exists, a default Config is returned.
func Load(dir string) (*Config, error) {
	path, err := findFile(dir)
	if err != nil {
		return &Config{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("reading .fleet: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing .fleet: %w", err)
	}
	return cfg, nil
}

// findFile walks upward from dir looking for a .fleet file.
func findFile(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, ".fleet")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf(".fleet not found")
		}
		dir = parent
	}
}
