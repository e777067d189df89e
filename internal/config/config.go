// ABOUTME: Configuration management for chirp with YAML config loading.
// ABOUTME: Handles remote API settings, data paths, timeline, logging, and server options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/chirp/internal/models"
)

// DefaultServeAddr is where `chirp serve` listens when nothing is configured.
const DefaultServeAddr = "127.0.0.1:8787"

// Config stores chirp configuration loaded from ~/.config/chirp/config.yaml.
type Config struct {
	Remote   RemoteConfig   `yaml:"remote"`
	Data     DataConfig     `yaml:"data"`
	Timeline TimelineConfig `yaml:"timeline"`
	Log      LogConfig      `yaml:"log"`
	Serve    ServeConfig    `yaml:"serve"`
}

// RemoteConfig points the client at a chirp API server.
type RemoteConfig struct {
	APIURL string `yaml:"api_url"`
	APIKey string `yaml:"api_key"`
}

// DataConfig holds an optional override for the local data directory.
type DataConfig struct {
	Path string `yaml:"path"`
}

// TimelineConfig holds timeline defaults.
type TimelineConfig struct {
	Limit int `yaml:"limit"`
}

// LogConfig controls logger output.
type LogConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
}

// ServeConfig holds API server settings.
type ServeConfig struct {
	Addr   string `yaml:"addr"`
	APIKey string `yaml:"api_key"`
}

// HasRemote returns true if a remote API server is configured.
func (c *Config) HasRemote() bool {
	return c.Remote.APIURL != ""
}

// TimelineLimit returns the configured page size, defaulting to 10.
func (c *Config) TimelineLimit() int {
	if c.Timeline.Limit <= 0 {
		return models.DefaultTimelineLimit
	}
	return c.Timeline.Limit
}

// ServeAddr returns the API server listen address.
func (c *Config) ServeAddr() string {
	if c.Serve.Addr == "" {
		return DefaultServeAddr
	}
	return c.Serve.Addr
}

// GetDataDir returns the local data directory, honoring data.path.
func (c *Config) GetDataDir() (string, error) {
	if c.Data.Path != "" {
		return ExpandPath(c.Data.Path)
	}
	return DataDir(), nil
}

// GetDBPath returns the SQLite database path inside the data directory.
func (c *Config) GetDBPath() (string, error) {
	dir, err := c.GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chirp.db"), nil
}

// DataDir returns the default data directory.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "chirp")
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "chirp", "config.yaml")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}

// Load reads config from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	data, err := os.ReadFile(GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
