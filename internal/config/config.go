// Package config merges command-line flags with an optional YAML config
// file for ambient, non-protocol knobs (metrics address, log level,
// timeouts). Positional port/URL arguments are never sourced from the
// file — they always come from the command line.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Shared holds the ambient knobs common to both relays.
type Shared struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Backend holds the Backend Relay's ambient knobs.
type Backend struct {
	Shared         `yaml:",inline"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Frontend holds the Frontend Relay's ambient knobs.
type Frontend struct {
	Shared `yaml:",inline"`
}

// DefaultBackend returns the Backend defaults used when no --config file is
// given.
func DefaultBackend() Backend {
	return Backend{ConnectTimeout: 5 * time.Second}
}

// DefaultFrontend returns the Frontend defaults used when no --config file
// is given.
func DefaultFrontend() Frontend {
	return Frontend{}
}

// LoadFile reads a YAML config file at path into out, overlaying it on
// whatever defaults out already holds. An empty path is a no-op: the
// defaults already in out are kept as-is.
func LoadFile(path string, out interface{}) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}
