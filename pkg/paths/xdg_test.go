package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordHomeOverridesXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("COORD_HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "/ignored")

	assert.Equal(t, filepath.Join(home, "config"), ConfigDir())
	assert.Equal(t, filepath.Join(home, "state"), StateDir())
	assert.Equal(t, filepath.Join(home, "cache"), CacheDir())

	require.NoError(t, EnsureDirs())
	assert.DirExists(t, ConfigDir())
}

func TestXDGVariables(t *testing.T) {
	t.Setenv("COORD_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_STATE_HOME", "/xdg/state")

	assert.Equal(t, "/xdg/config/coord", ConfigDir())
	assert.Equal(t, "/xdg/state/coord", StateDir())
}

func TestHomeFallback(t *testing.T) {
	home := t.TempDir()
	t.Setenv("COORD_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".cache", "coord"), CacheDir())
}
