// Package config manages the polyplay data directory and its TOML
// configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	ConfigFile   = "config.toml"
	DatabaseFile = "library.db"
	LegacyFile   = "polyplay-v1.db"
	BlobsDir     = "blobs"
	LogFile      = "polyplay.log"
)

// Config represents the polyplay configuration.
type Config struct {
	LogLevel    string `toml:"log_level"`
	CapBytes    int64  `toml:"cap_bytes"`   // 0 = device-profile default
	Constrained *bool  `toml:"constrained"` // forces the device profile when set
	DemoBaseURL string `toml:"demo_base_url"`

	path string // data directory
}

// DefaultDir returns the default data directory under the user config dir.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "polyplay"), nil
}

// Load reads the configuration from dir, creating the directory and a
// default config file on first run.
func Load(dir string) (*Config, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	cfg := &Config{LogLevel: "info", path: dir}

	configPath := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.path = dir
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Dir returns the data directory.
func (c *Config) Dir() string {
	return c.path
}

// DatabasePath returns the path to the bbolt metadata database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// LegacyPath returns the path the v1 sqlite database would live at.
func (c *Config) LegacyPath() string {
	return filepath.Join(c.path, LegacyFile)
}

// BlobsPath returns the blob store root directory.
func (c *Config) BlobsPath() string {
	return filepath.Join(c.path, BlobsDir)
}

// LogPath returns the rotating log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.path, LogFile)
}
