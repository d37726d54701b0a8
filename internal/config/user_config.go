// Package config loads anycode configuration. The per-user file at
// ~/.anycode/config.json is the single source of truth; every value has
// a working default so a missing file never blocks startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default values applied when the config file is absent or a field is
// unset.
const (
	DefaultEngine         = "claude"
	DefaultCommandTimeout = 2 * time.Minute
)

// LoggingConfig mirrors the "logging" section consumed by
// internal/logging.
type LoggingConfig struct {
	// DebugMode enables debug-level lines in the per-category logs.
	DebugMode bool `json:"debug_mode,omitempty"`

	// Categories restricts logging to the categories mapped to true.
	// Empty means all categories. The shape must stay in sync with
	// internal/logging, which reads the same document.
	Categories map[string]bool `json:"categories,omitempty"`

	// Level overrides the minimum level (debug, info, warn, error).
	Level string `json:"level,omitempty"`
}

// UserConfig holds all anycode configuration from ~/.anycode/config.json.
type UserConfig struct {
	// Engine selects which AI engine authors checkpoints and receives
	// MCP sync: "claude" (default), "codex", "gemini".
	Engine string `json:"engine,omitempty"`

	// CommandTimeoutMs bounds each spawned git process. Zero means the
	// built-in default.
	CommandTimeoutMs int `json:"command_timeout_ms,omitempty"`

	// RegistryPath overrides the MCP registry file location.
	RegistryPath string `json:"registry_path,omitempty"`

	// EngineConfigDir overrides where per-engine MCP configs live.
	EngineConfigDir string `json:"engine_config_dir,omitempty"`

	// CheckpointDBPath overrides the checkpoint history database
	// location.
	CheckpointDBPath string `json:"checkpoint_db_path,omitempty"`

	// Logging configures the per-category file logger.
	Logging *LoggingConfig `json:"logging,omitempty"`
}

// UserConfigDir returns ~/.anycode, creating nothing.
func UserConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".anycode"), nil
}

// DefaultUserConfigPath returns the default path to ~/.anycode/config.json.
func DefaultUserConfigPath() string {
	dir, err := UserConfigDir()
	if err != nil {
		return filepath.Join(".anycode", "config.json")
	}
	return filepath.Join(dir, "config.json")
}

// LoadUserConfig loads configuration from the given path. An absent
// file yields an empty config, not an error.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

// Save writes the config back to the given path.
func (c *UserConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}
	return nil
}

// GetEngine returns the configured engine, defaulting to claude.
func (c *UserConfig) GetEngine() string {
	if c.Engine != "" {
		return c.Engine
	}
	return DefaultEngine
}

// GetCommandTimeout returns the per-process timeout.
func (c *UserConfig) GetCommandTimeout() time.Duration {
	if c.CommandTimeoutMs > 0 {
		return time.Duration(c.CommandTimeoutMs) * time.Millisecond
	}
	return DefaultCommandTimeout
}

// GetRegistryPath returns the MCP registry file path, resolving the
// default under ~/.anycode when no override is set.
func (c *UserConfig) GetRegistryPath() (string, error) {
	if c.RegistryPath != "" {
		return c.RegistryPath, nil
	}
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mcp-registry.json"), nil
}

// GetEngineConfigDir returns the per-engine MCP config directory.
func (c *UserConfig) GetEngineConfigDir() (string, error) {
	if c.EngineConfigDir != "" {
		return c.EngineConfigDir, nil
	}
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "engines"), nil
}

// GetCheckpointDBPath returns the checkpoint history database path.
func (c *UserConfig) GetCheckpointDBPath() (string, error) {
	if c.CheckpointDBPath != "" {
		return c.CheckpointDBPath, nil
	}
	dir, err := UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "checkpoints.db"), nil
}
