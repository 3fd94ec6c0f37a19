// Copyright 2025 dotandev
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dotandev/wasmprune/internal/errors"
)

// Config holds wasmprune's runtime configuration: default input/output
// paths, logging and caching behavior, opt-in crash reporting, and the
// daemon's listen port and auth token.
type Config struct {
	InputPath  string `yaml:"input_path,omitempty"`
	OutputPath string `yaml:"output_path,omitempty"`
	LogLevel   string `yaml:"log_level,omitempty"`
	CachePath  string `yaml:"cache_path,omitempty"`

	// CrashReporting enables opt-in anonymous crash reporting.
	// Set via crash_reporting: true in config or WASMPRUNE_CRASH_REPORTING=true.
	CrashReporting bool `yaml:"crash_reporting,omitempty"`
	// CrashEndpoint is a custom HTTPS URL that receives JSON crash reports.
	// Set via crash_endpoint in config or WASMPRUNE_CRASH_ENDPOINT.
	CrashEndpoint string `yaml:"crash_endpoint,omitempty"`
	// CrashSentryDSN is a Sentry Data Source Name for crash reporting.
	// Set via crash_sentry_dsn in config or WASMPRUNE_SENTRY_DSN.
	CrashSentryDSN string `yaml:"crash_sentry_dsn,omitempty"`

	DaemonPort      string `yaml:"daemon_port,omitempty"`
	DaemonAuthToken string `yaml:"daemon_auth_token,omitempty"`
}

var defaultConfig = &Config{
	LogLevel:   "info",
	CachePath:  filepath.Join(os.ExpandEnv("$HOME"), ".wasmprune", "cache"),
	DaemonPort: "8080",
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// DefaultConfig returns a Config populated with built-in defaults, used
// whenever no config file is present or loading one fails.
func DefaultConfig() *Config {
	cfg := *defaultConfig
	return &cfg
}

// NewConfig builds a Config around an explicit input/output path pair,
// leaving everything else at its default.
func NewConfig(inputPath, outputPath string) *Config {
	cfg := DefaultConfig()
	cfg.InputPath = inputPath
	cfg.OutputPath = outputPath
	return cfg
}

func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}

func (c *Config) WithCachePath(path string) *Config {
	c.CachePath = path
	return c
}

// Validate checks that the configuration is internally consistent. A
// missing input path is fine here: it's a per-invocation CLI argument,
// not something a config file is required to carry.
func (c *Config) Validate() error {
	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		return errors.WrapValidationError("invalid log level: " + c.LogLevel)
	}
	return nil
}

func (c *Config) String() string {
	return "Config{LogLevel: " + c.LogLevel + ", CachePath: " + c.CachePath + "}"
}

// Load builds a Config by layering, from lowest to highest precedence:
// built-in defaults, a YAML config file, then environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	if v := os.Getenv("WASMPRUNE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WASMPRUNE_CACHE_PATH"); v != "" {
		cfg.CachePath = v
	}
	if v := os.Getenv("WASMPRUNE_DAEMON_PORT"); v != "" {
		cfg.DaemonPort = v
	}
	if v := os.Getenv("WASMPRUNE_DAEMON_AUTH_TOKEN"); v != "" {
		cfg.DaemonAuthToken = v
	}
	if v := os.Getenv("WASMPRUNE_CRASH_ENDPOINT"); v != "" {
		cfg.CrashEndpoint = v
	}
	if v := os.Getenv("WASMPRUNE_SENTRY_DSN"); v != "" {
		cfg.CrashSentryDSN = v
	}
	switch strings.ToLower(os.Getenv("WASMPRUNE_CRASH_REPORTING")) {
	case "1", "true", "yes":
		cfg.CrashReporting = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFromFile() error {
	paths := []string{
		".wasmprune.yaml",
		filepath.Join(os.ExpandEnv("$HOME"), ".wasmprune.yaml"),
		"/etc/wasmprune/config.yaml",
	}

	for _, path := range paths {
		if err := c.loadYAML(path); err == nil {
			return nil
		}
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.WrapConfigError("failed to parse config file "+path, err)
	}
	return nil
}

// GetConfigPath returns the directory wasmprune keeps its persisted
// configuration and database under.
func GetConfigPath() (string, error) {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "wasmprune"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.WrapConfigError("failed to resolve config directory", err)
	}
	return filepath.Join(homeDir, ".config", "wasmprune"), nil
}
