// ABOUTME: Charm KV client wrapper used by the contract mirror
// ABOUTME: Serializes access and syncs after writes when auto-sync is on

package charm

import (
	"bytes"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
)

// store is the subset of *kv.KV the client needs.
type store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
}

// Client wraps a charm KV store with config and sync helpers.
type Client struct {
	kv     store
	config *Config
	remote bool
	mu     sync.RWMutex
}

// Open connects to the charm KV database for this app.
func Open(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig("")
	}

	_ = os.Setenv("CHARM_HOST", cfg.Host)

	db, err := kv.OpenWithDefaults(AppName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{kv: db, config: cfg, remote: true}

	// Pull remote snapshots on startup
	if cfg.AutoSync {
		_ = db.Sync()
	}
	return c, nil
}

func (c *Client) Config() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

// ID returns the charm user ID for this device.
func (c *Client) ID() (string, error) {
	if !c.remote {
		return "local", nil
	}
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("failed to create charm client: %w", err)
	}
	return cc.ID()
}

// Sync performs a manual sync with the charm server.
func (c *Client) Sync() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Sync()
}

func (c *Client) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.kv.Get(key)
}

// SetMany writes all pairs, then syncs once if auto-sync is on.
func (c *Client) SetMany(pairs ...[2][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range pairs {
		if err := c.kv.Set(p[0], p[1]); err != nil {
			return err
		}
	}
	if c.config.AutoSync {
		_ = c.kv.Sync()
	}
	return nil
}

// KeysWithPrefix returns all keys starting with prefix.
func (c *Client) KeysWithPrefix(prefix []byte) ([][]byte, error) {
	c.mu.RLock()
	keys, err := c.kv.Keys()
	c.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	var matched [][]byte
	for _, k := range keys {
		if bytes.HasPrefix(k, prefix) {
			matched = append(matched, k)
		}
	}
	return matched, nil
}

// Reset wipes every mirrored snapshot.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}
