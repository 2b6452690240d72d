// ABOUTME: Runtime configuration for grainbroker
// ABOUTME: Defaults under XDG data home, overridden by .env and GRAINBROKER_* variables
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const AppName = "grainbroker"

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Sequence backends. SequenceStore uses the counters table of the active store.
const (
	SequenceStore  = "store"
	SequenceRedis  = "redis"
	SequenceBadger = "badger"
)

type Config struct {
	Store       string
	DBPath      string
	PostgresURL string

	Sequence  string
	RedisURL  string
	BadgerDir string

	NumberPrefix string
	NumberWidth  int

	LogMode     string
	MetricsAddr string

	MirrorEnabled bool
	CharmHost     string
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	dataDir := filepath.Join(xdg.DataHome, AppName)
	return &Config{
		Store:     StoreSQLite,
		DBPath:    filepath.Join(dataDir, "contracts.db"),
		Sequence:  SequenceStore,
		BadgerDir: filepath.Join(dataDir, "sequence"),
		LogMode:   "dev",
	}
}

// Load reads an optional .env file from the working directory, then applies
// GRAINBROKER_* environment variables over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := Default()

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv("GRAINBROKER_" + key)); v != "" {
			*dst = v
		}
	}
	str("STORE", &cfg.Store)
	str("DB_PATH", &cfg.DBPath)
	str("POSTGRES_URL", &cfg.PostgresURL)
	str("SEQUENCE", &cfg.Sequence)
	str("REDIS_URL", &cfg.RedisURL)
	str("BADGER_DIR", &cfg.BadgerDir)
	str("NUMBER_PREFIX", &cfg.NumberPrefix)
	str("LOG_MODE", &cfg.LogMode)
	str("METRICS_ADDR", &cfg.MetricsAddr)
	str("CHARM_HOST", &cfg.CharmHost)

	if v := getenv("GRAINBROKER_NUMBER_WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("GRAINBROKER_NUMBER_WIDTH must be a non-negative integer, got %q", v)
		}
		cfg.NumberWidth = n
	}
	if v := getenv("GRAINBROKER_MIRROR"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("GRAINBROKER_MIRROR must be a boolean, got %q", v)
		}
		cfg.MirrorEnabled = b
	}

	return cfg, cfg.Validate()
}

// Validate checks backend names and that each chosen backend has what it needs.
func (c *Config) Validate() error {
	switch c.Store {
	case StoreSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("sqlite store needs a database path")
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("postgres store needs GRAINBROKER_POSTGRES_URL")
		}
	default:
		return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreSQLite, StorePostgres)
	}

	switch c.Sequence {
	case SequenceStore:
	case SequenceRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis sequence needs GRAINBROKER_REDIS_URL")
		}
	case SequenceBadger:
		if c.BadgerDir == "" {
			return fmt.Errorf("badger sequence needs a directory")
		}
	default:
		return fmt.Errorf("unknown sequence backend %q", c.Sequence)
	}
	return nil
}
