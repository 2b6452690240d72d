package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestDefaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, SequenceStore, cfg.Sequence)
	assert.Equal(t, "contracts.db", filepath.Base(cfg.DBPath))
	assert.Equal(t, 0, cfg.NumberWidth)
	assert.False(t, cfg.MirrorEnabled)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"GRAINBROKER_STORE":         "postgres",
		"GRAINBROKER_POSTGRES_URL":  "postgres://localhost/grain",
		"GRAINBROKER_SEQUENCE":      "redis",
		"GRAINBROKER_REDIS_URL":     "redis://localhost:6379/0",
		"GRAINBROKER_NUMBER_PREFIX": "GB-",
		"GRAINBROKER_NUMBER_WIDTH":  "5",
		"GRAINBROKER_MIRROR":        "true",
		"GRAINBROKER_LOG_MODE":      "prod",
	}))
	require.NoError(t, err)
	assert.Equal(t, StorePostgres, cfg.Store)
	assert.Equal(t, SequenceRedis, cfg.Sequence)
	assert.Equal(t, "GB-", cfg.NumberPrefix)
	assert.Equal(t, 5, cfg.NumberWidth)
	assert.True(t, cfg.MirrorEnabled)
	assert.Equal(t, "prod", cfg.LogMode)
}

func TestInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"bad width":        {"GRAINBROKER_NUMBER_WIDTH": "wide"},
		"negative width":   {"GRAINBROKER_NUMBER_WIDTH": "-1"},
		"bad mirror":       {"GRAINBROKER_MIRROR": "maybe"},
		"unknown store":    {"GRAINBROKER_STORE": "mongo"},
		"postgres no url":  {"GRAINBROKER_STORE": "postgres"},
		"redis no url":     {"GRAINBROKER_SEQUENCE": "redis"},
		"unknown sequence": {"GRAINBROKER_SEQUENCE": "uuid"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(env(vars))
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GRAINBROKER_NUMBER_PREFIX=ENV-\n"), 0600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("GRAINBROKER_NUMBER_PREFIX")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ENV-", cfg.NumberPrefix)
}
