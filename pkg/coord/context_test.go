package coord

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, "alice-1-abc")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, ".coord"), c.RegistryDir)
	assert.Equal(t, 30*time.Minute, c.Thresholds.Stale)
	assert.Equal(t, 2*time.Hour, c.Thresholds.Zombie)
	assert.Equal(t, 5*time.Minute, c.Thresholds.SyncTTL)
	assert.NotEmpty(t, c.Identity.Platform)
}

func TestFromConfig(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Coordination.RegistryDir = "var/coord"
	cfg.Coordination.StaleAfter = "10m"
	cfg.Coordination.ZombieAfter = "1h"
	cfg.Sync.TTL = "1m"
	cfg.Coordination.Ignore = []string{"vendor/**"}

	c, err := FromConfig(root, "s1", cfg)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "var", "coord"), c.RegistryDir)
	assert.Equal(t, 10*time.Minute, c.Thresholds.Stale)
	assert.Equal(t, time.Hour, c.Thresholds.Zombie)
	assert.Equal(t, time.Minute, c.Thresholds.SyncTTL)
	assert.True(t, c.Ignored("vendor/lib/a.go"))
	assert.False(t, c.Ignored("src/a.go"))
	assert.True(t, c.Ignored("var/coord/sessions/s1.json"))
}

func TestWithClock(t *testing.T) {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	c, err := New(t.TempDir(), "s1", WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, c.Clock().Location())
	assert.True(t, fixed.Equal(c.Clock()))
}

func TestRelPath(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, "s1")
	require.NoError(t, err)

	rel, ok := c.RelPath(filepath.Join(root, "src", "main.go"))
	assert.True(t, ok)
	assert.Equal(t, "src/main.go", rel)

	rel, ok = c.RelPath("src/./util/../main.go")
	assert.True(t, ok)
	assert.Equal(t, "src/main.go", rel)

	_, ok = c.RelPath(filepath.Join(filepath.Dir(root), "elsewhere.go"))
	assert.False(t, ok)
}

func TestIgnoredDefaults(t *testing.T) {
	c, err := New(t.TempDir(), "s1")
	require.NoError(t, err)

	assert.True(t, c.Ignored(".git/config"))
	assert.True(t, c.Ignored(".coord/wip/s1.json"))
	assert.False(t, c.Ignored("src/.gitkeep"))
}

func TestEnsureLayout(t *testing.T) {
	root := t.TempDir()
	c, err := New(root, "s1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("node_modules"), 0644))
	require.NoError(t, c.EnsureLayout())
	require.NoError(t, c.EnsureLayout())

	for _, sub := range []string{"sessions", "wip", "cache", "logs"} {
		info, err := os.Stat(filepath.Join(root, ".coord", sub))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "node_modules\n.coord/\n", string(data))
}

func TestEnsureLayoutRespectsExistingEntry(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("/.coord\n"), 0644))
	c, err := New(root, "s1")
	require.NoError(t, err)

	require.NoError(t, c.EnsureLayout())

	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "/.coord\n", string(data))
}

func TestEnsureLayoutOutsideRoot(t *testing.T) {
	root := t.TempDir()
	reg := t.TempDir()
	c, err := New(root, "s1", WithRegistryDir(reg))
	require.NoError(t, err)

	require.NoError(t, c.EnsureLayout())
	_, err = os.Stat(filepath.Join(root, ".gitignore"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewSessionID(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	id, err := NewSessionID("Alice Smith", now, bytes.NewReader([]byte{0xab, 0xcd, 0xef}))
	require.NoError(t, err)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 3)
	assert.Equal(t, "alicesmith", parts[0])
	assert.Equal(t, "loyw3v28", parts[1])
	assert.Equal(t, "abcdef", parts[2])
}

func TestNewSessionIDUnique(t *testing.T) {
	now := time.Now()
	a, err := NewSessionID("bob", now, nil)
	require.NoError(t, err)
	b, err := NewSessionID("bob", now, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResolveSessionIDOrder(t *testing.T) {
	t.Setenv(EnvSessionID, "")
	t.Setenv(EnvClaudeSessionID, "")
	st := state.Open(filepath.Join(t.TempDir(), "state.yml"))
	now := time.Now()
	carol := Identity{Developer: "carol", Hostname: "carol-host", PID: 100}

	t.Run("payload when env unset", func(t *testing.T) {
		id, err := ResolveSessionID(st, "payload-id", carol, now)
		require.NoError(t, err)
		assert.Equal(t, "payload-id", id)
	})

	t.Run("env wins over payload", func(t *testing.T) {
		t.Setenv(EnvClaudeSessionID, "claude-id")
		id, err := ResolveSessionID(st, "payload-id", carol, now)
		require.NoError(t, err)
		assert.Equal(t, "claude-id", id)

		t.Setenv(EnvSessionID, "coord-id")
		id, err = ResolveSessionID(st, "payload-id", carol, now)
		require.NoError(t, err)
		assert.Equal(t, "coord-id", id)
	})

	t.Run("generated id is remembered", func(t *testing.T) {
		first, err := ResolveSessionID(st, "", carol, now)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(first, "carol-"))
		assert.Equal(t, first, RememberedSessionID(st, carol))

		second, err := ResolveSessionID(st, "", carol, now)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		require.NoError(t, ForgetSessionID(st, carol))
		assert.Empty(t, RememberedSessionID(st, carol))
	})

	t.Run("each owner keeps its own id", func(t *testing.T) {
		dave := Identity{Developer: "dave", Hostname: "dave-host", PID: 100}
		otherAgent := Identity{Developer: "carol", Hostname: "carol-host", PID: 200}
		otherHost := Identity{Developer: "carol", Hostname: "build-02", PID: 100}

		mine, err := ResolveSessionID(st, "", carol, now)
		require.NoError(t, err)
		seen := map[string]bool{mine: true}
		for _, owner := range []Identity{dave, otherAgent, otherHost} {
			id, err := ResolveSessionID(st, "", owner, now)
			require.NoError(t, err)
			assert.False(t, seen[id], "%s reused %s", owner.Owner(), id)
			seen[id] = true
		}

		again, err := ResolveSessionID(st, "", carol, now)
		require.NoError(t, err)
		assert.Equal(t, mine, again)
	})

	t.Run("invalid payload is skipped", func(t *testing.T) {
		id, err := ResolveSessionID(st, "../etc/passwd", Identity{Developer: "dave"}, now)
		require.NoError(t, err)
		assert.NotEqual(t, "../etc/passwd", id)
	})
}

func TestStatePathOutsideRegistry(t *testing.T) {
	home := t.TempDir()
	t.Setenv("COORD_HOME", home)
	rootA := filepath.Join(t.TempDir(), "app")
	rootB := filepath.Join(t.TempDir(), "app")

	a, err := New(rootA, "s1")
	require.NoError(t, err)
	b, err := New(rootB, "s1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.StatePath(), filepath.Join(home, "state")+string(filepath.Separator)))
	assert.False(t, strings.HasPrefix(a.StatePath(), a.RegistryDir))
	assert.NotEqual(t, a.StatePath(), b.StatePath(), "same base name, different roots")

	c, err := New(rootA, "s1", WithStateDir(filepath.Join(rootA, "st")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rootA, "st", "projects"), filepath.Dir(c.StatePath()))
}

func TestResolveRoot(t *testing.T) {
	dir := t.TempDir()

	t.Setenv(EnvClaudeProjectDir, "")
	t.Setenv(EnvProjectDir, dir)
	root, err := ResolveRoot("")
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	t.Setenv(EnvProjectDir, "")
	t.Setenv(EnvClaudeProjectDir, dir)
	root, err = ResolveRoot("")
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	t.Setenv(EnvClaudeProjectDir, "")
	plain := t.TempDir()
	root, err = ResolveRoot(plain)
	require.NoError(t, err)
	assert.NotEmpty(t, root)
}

func TestLoadEnvFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, LoadEnvFile(root))

	require.NoError(t, os.WriteFile(filepath.Join(root, EnvFile),
		[]byte("COORD_TEST_FROM_FILE=file\nCOORD_TEST_PRESET=file\n"), 0644))
	t.Setenv("COORD_TEST_PRESET", "env")
	t.Setenv("COORD_TEST_FROM_FILE", "")
	os.Unsetenv("COORD_TEST_FROM_FILE")

	require.NoError(t, LoadEnvFile(root))
	assert.Equal(t, "file", os.Getenv("COORD_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("COORD_TEST_PRESET"))
}
