// ABOUTME: Configuration for the Charm KV contract mirror
// ABOUTME: Persists server host and auto-sync preference under XDG data home

package charm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultCharmHost is the self-hosted charm server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the Charm KV database.
	AppName = "grainbroker"

	ConfigFileName = "mirror-config.json"
)

// Config holds charm connection settings.
type Config struct {
	Host string `json:"host,omitempty"`

	// AutoSync pushes to the server after every snapshot
	AutoSync bool `json:"auto_sync"`

	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`
}

// DefaultConfig returns a config pointing at host, or the default host when empty.
func DefaultConfig(host string) *Config {
	if host == "" {
		host = DefaultCharmHost
	}
	return &Config{
		Host:           host,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

func configPath() (string, error) {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", err
	}
	return filepath.Join(dataDir, ConfigFileName), nil
}

// LoadConfig reads the saved config. A missing or unreadable file yields the
// defaults; hostOverride, when set, wins over the saved host.
func LoadConfig(hostOverride string) (*Config, error) {
	cfg := DefaultConfig(hostOverride)

	path, err := configPath()
	if err != nil {
		return cfg, nil //nolint:nilerr // no config dir means defaults
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	var saved Config
	if err := json.Unmarshal(data, &saved); err != nil {
		return cfg, nil //nolint:nilerr // corrupt config falls back to defaults
	}
	if saved.Host != "" && hostOverride == "" {
		cfg.Host = saved.Host
	}
	cfg.AutoSync = saved.AutoSync
	if saved.StaleThreshold != 0 {
		cfg.StaleThreshold = saved.StaleThreshold
	}
	return cfg, nil
}

// Save persists the config to disk.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
