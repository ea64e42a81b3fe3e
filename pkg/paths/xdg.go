// Package paths provides XDG-compliant path resolution for coord.
//
// Resolution order:
// 1. COORD_HOME (portable root) → $COORD_HOME/{config,state,cache}
// 2. XDG env vars → $XDG_*_HOME/coord
// 3. Platform defaults → ~/.config/coord, ~/.local/state/coord, ~/.cache/coord
package paths

import (
	"os"
	"path/filepath"
)

const appName = "coord"

// baseDir resolves one XDG base directory.
func baseDir(homeSub, xdgVar string, fallback ...string) string {
	if coordHome := os.Getenv("COORD_HOME"); coordHome != "" {
		return filepath.Join(coordHome, homeSub)
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
	}
	return ""
}

// ConfigDir returns the global configuration directory.
// Used for the user-wide coord.yml.
func ConfigDir() string {
	return baseDir("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the global state directory.
// Used for logs written outside any project and for per-user project state.
func StateDir() string {
	return baseDir("state", "XDG_STATE_HOME", ".local", "state")
}

// CacheDir returns the global cache directory.
func CacheDir() string {
	return baseDir("cache", "XDG_CACHE_HOME", ".cache")
}

// EnsureDirs creates all global directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir(), CacheDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
