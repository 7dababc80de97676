// Package config provides configuration management for gridmark.
//
// The config file says where the model database and the shared definition
// file live, and which fields a numbering run writes.
//
// Config file locations (priority order):
//  1. $GRIDMARK_CONFIG
//  2. ./gridmark.yaml
//  3. $XDG_CONFIG_HOME/gridmark/config.yaml
//  4. ~/.config/gridmark/config.yaml
//  5. /etc/gridmark/config.yaml
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gridmark/internal/domain"
)

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		// No config found - return defaults
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./gridmark.db"
	}
	if c.Definitions.Group == "" {
		c.Definitions.Group = domain.DefaultDefinitionGroup
	}
	if c.Fields.GridSquare == "" {
		c.Fields.GridSquare = domain.FieldGridSquare
	}
	if c.Fields.Number == "" {
		c.Fields.Number = domain.FieldNumber
	}
	if c.Binding.ParameterGroup == "" {
		c.Binding.ParameterGroup = string(domain.ParameterGroupIdentityData)
	}

	c.Database.Path = expandHome(c.Database.Path)
	c.Definitions.Path = expandHome(c.Definitions.Path)
}

// Validate checks values that defaults cannot repair
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := c.ParameterGroup(); err != nil {
		return err
	}
	if c.Fields.GridSquare == c.Fields.Number {
		return fmt.Errorf("fields.grid_square and fields.number must differ, both are %q", c.Fields.Number)
	}
	return nil
}

// ParameterGroup returns the configured binding parameter group
func (c *Config) ParameterGroup() (domain.ParameterGroup, error) {
	switch g := domain.ParameterGroup(strings.ToUpper(c.Binding.ParameterGroup)); g {
	case domain.ParameterGroupIdentityData, domain.ParameterGroupData, domain.ParameterGroupText:
		return g, nil
	default:
		return "", fmt.Errorf("unknown binding.parameter_group %q", c.Binding.ParameterGroup)
	}
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	definitions := c.Definitions.Path
	if definitions == "" {
		definitions = "(not configured)"
	}

	summary := fmt.Sprintf("Database: %s\n", c.Database.Path)
	summary += fmt.Sprintf("Definitions: %s (group %q)\n", definitions, c.Definitions.Group)
	summary += fmt.Sprintf("Fields: %q, %q bound under %s", c.Fields.GridSquare, c.Fields.Number, c.Binding.ParameterGroup)
	return summary
}

// ParseLogLevel maps debug, info, warn and error to slog levels
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
