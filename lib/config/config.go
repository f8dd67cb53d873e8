// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Storekeep
// commands.
//
// Configuration is loaded from a single file specified by:
//   - STOREKEEP_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. The config file is
// the single source of truth; environment variables do not override
// config values. The only expansion performed is ${HOME} and similar
// path variables for portability.
//
// The config file may contain environment-specific sections
// (development, staging, production) that override base values when
// the environment matches.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production points at the live backend.
	Production Environment = "production"
)

// Config is the master configuration for Storekeep.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Backend configures the platform endpoints.
	Backend BackendConfig `yaml:"backend"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Chat configures the messaging behavior.
	Chat ChatConfig `yaml:"chat"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Backend *BackendConfig `yaml:"backend,omitempty"`
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Chat    *ChatConfig    `yaml:"chat,omitempty"`
}

// BackendConfig configures the platform endpoints.
type BackendConfig struct {
	// APIURL is the base URL of the REST backend.
	// Default: http://localhost:3001
	APIURL string `yaml:"api_url"`

	// RealtimeURL is the websocket endpoint for the chat channel.
	// Default: derived from APIURL (http -> ws) with path /ws.
	RealtimeURL string `yaml:"realtime_url"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for Storekeep data.
	Root string `yaml:"root"`

	// State is where the durable client state lives (saved session,
	// unread counters).
	State string `yaml:"state"`
}

// ChatConfig configures the messaging behavior.
type ChatConfig struct {
	// Notifications enables desktop-style notification lines for
	// messages arriving outside the open conversation.
	// Default: true
	Notifications bool `yaml:"notifications"`
}

// Default returns the default configuration. These defaults are a
// base before loading the config file, ensuring all fields have
// sensible zero-values; the config file itself is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".local", "share", "storekeep")

	return &Config{
		Environment: Development,
		Backend: BackendConfig{
			APIURL: "http://localhost:3001",
		},
		Paths: PathsConfig{
			Root:  defaultRoot,
			State: filepath.Join(defaultRoot, "state"),
		},
		Chat: ChatConfig{
			Notifications: true,
		},
	}
}

// Load loads configuration from the STOREKEEP_CONFIG environment
// variable. There are no fallbacks - if STOREKEEP_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("STOREKEEP_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("STOREKEEP_CONFIG environment variable not set; " +
			"set it to the path of your storekeep.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	cfg.deriveRealtimeURL()

	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Backend != nil {
		if overrides.Backend.APIURL != "" {
			c.Backend.APIURL = overrides.Backend.APIURL
		}
		if overrides.Backend.RealtimeURL != "" {
			c.Backend.RealtimeURL = overrides.Backend.RealtimeURL
		}
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
	}

	if overrides.Chat != nil {
		// Notifications is a bool, so it is always applied from overrides.
		c.Chat.Notifications = overrides.Chat.Notifications
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"STOREKEEP_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["STOREKEEP_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// deriveRealtimeURL fills in the websocket endpoint from the API URL
// when the config file did not set one explicitly.
func (c *Config) deriveRealtimeURL() {
	if c.Backend.RealtimeURL != "" {
		return
	}
	parsed, err := url.Parse(c.Backend.APIURL)
	if err != nil || parsed.Host == "" {
		return // Validate reports the bad API URL.
	}
	scheme := "ws"
	if parsed.Scheme == "https" {
		scheme = "wss"
	}
	c.Backend.RealtimeURL = scheme + "://" + parsed.Host + "/ws"
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Backend.APIURL == "" {
		errs = append(errs, fmt.Errorf("backend.api_url is required"))
	} else if parsed, err := url.Parse(c.Backend.APIURL); err != nil || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("backend.api_url is not a valid URL: %s", c.Backend.APIURL))
	}

	if c.Backend.RealtimeURL != "" {
		parsed, err := url.Parse(c.Backend.RealtimeURL)
		if err != nil || (parsed.Scheme != "ws" && parsed.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("backend.realtime_url must be a ws:// or wss:// URL: %s", c.Backend.RealtimeURL))
		}
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, fmt.Errorf("paths.state is required"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// StatePath returns the path to the SQLite state database.
func (c *Config) StatePath() string {
	return filepath.Join(c.Paths.State, "storekeep.db")
}

// EnsurePaths creates all configured directories if they don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Root, c.Paths.State} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
