// Package config loads the optional xcoffscan.yml settings file and
// resolves the snapshot database location.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "xcoffscan.yml"
	Version        = "1.0"

	EnvConfig = "XCOFF_CONFIG"
	EnvDBPath = "XCOFF_DB_PATH"

	DefaultTimeoutSeconds       = 300
	DefaultMaxOutputBytes int64 = 8 << 20
	defaultDBDir                = ".xcoffscandb"
)

// ObjectModes are the values accepted for object_mode. Empty means dump's default.
var ObjectModes = []string{"", "32", "64", "32_64"}

// Config represents xcoffscan.yml.
type Config struct {
	Version        string   `yaml:"version"`
	DBPath         string   `yaml:"db_path,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	Parallel       bool     `yaml:"parallel,omitempty"`
	ObjectMode     string   `yaml:"object_mode,omitempty"`
	MaxOutputBytes int64    `yaml:"max_output_bytes,omitempty"`
	Analyzers      []string `yaml:"analyzers,omitempty"`
	Exclude        []string `yaml:"exclude,omitempty"`
}

func Default() *Config {
	return &Config{
		Version:        Version,
		TimeoutSeconds: DefaultTimeoutSeconds,
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}

// Path returns the config file location: the explicit path if set, else
// $XCOFF_CONFIG, else ~/.config/xcoffscan.yml.
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", ConfigFileName)
}

// Load reads the config file at path. A missing file yields the defaults
// unless required is set.
func Load(path string, required bool) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.MaxOutputBytes == 0 {
		cfg.MaxOutputBytes = DefaultMaxOutputBytes
	}
	return &cfg, nil
}

// Validate checks the config values.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version field is required")
	}
	if c.Version != Version {
		return fmt.Errorf("unsupported version: %s (supported: %s)", c.Version, Version)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative: %d", c.TimeoutSeconds)
	}
	if c.MaxOutputBytes < 0 {
		return fmt.Errorf("max_output_bytes must not be negative: %d", c.MaxOutputBytes)
	}
	if !slices.Contains(ObjectModes, c.ObjectMode) {
		return fmt.Errorf("unsupported object_mode: %s (supported: 32, 64, 32_64)", c.ObjectMode)
	}
	return nil
}

// Timeout returns the per-analyzer timeout. Zero seconds means the default.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds == 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ResolveDBPath picks the database root: the flag value, else $XCOFF_DB_PATH,
// else db_path from the config, else ~/.xcoffscandb. A leading ~ is expanded.
func (c *Config) ResolveDBPath(flagValue string) (string, error) {
	for _, p := range []string{flagValue, os.Getenv(EnvDBPath), c.DBPath} {
		if p != "" {
			return expandHome(p)
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, defaultDBDir), nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !hasHomePrefix(p) {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

func hasHomePrefix(p string) bool {
	return len(p) > 1 && p[0] == '~' && (p[1] == '/' || p[1] == filepath.Separator)
}
