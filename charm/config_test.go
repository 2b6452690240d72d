package charm

import (
	"testing"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/charm/kv"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("")
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, kv.DefaultStaleThreshold, cfg.StaleThreshold)

	assert.Equal(t, "charm.example.com", DefaultConfig("charm.example.com").Host)
}

func TestLoadConfigHostOverride(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	xdg.Reload()
	t.Cleanup(xdg.Reload)

	cfg, err := LoadConfig("charm.example.com")
	assert.NoError(t, err)
	assert.Equal(t, "charm.example.com", cfg.Host)
}
