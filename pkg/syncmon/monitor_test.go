package syncmon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/registry"
	"github.com/grovetools/coord/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMonitor(t *testing.T, root string, clock *testutil.Clock, opts ...Option) *Monitor {
	t.Helper()
	c, err := coord.New(root, "tester-1", coord.WithClock(clock.Now))
	require.NoError(t, err)
	return NewMonitor(c, registry.NewFileStore(c.RegistryDir), opts...)
}

func newClock() *testutil.Clock {
	return testutil.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
}

func TestRunUpToDate(t *testing.T) {
	ctx := context.Background()
	pair := testutil.SetupRemotePair(t)
	m := newMonitor(t, pair.Local, newClock())

	res, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusChecked, res.Status)
	assert.Equal(t, "main", res.Branch)
	assert.Equal(t, "origin/main", res.TrackingBranch)
	assert.Zero(t, res.Behind)
	assert.Zero(t, res.Ahead)
	assert.Empty(t, BuildSyncReport(res))

	last := m.LastCheck(ctx)
	require.NotNil(t, last)
	assert.Equal(t, StatusChecked, last.Result.Status)
}

func TestRunBreakingChangeScenario(t *testing.T) {
	ctx := context.Background()
	pair := testutil.SetupRemotePair(t)
	pair.PushFromOther(t, "ui/padding.txt", "8", "fix: padding")
	pair.PushFromOther(t, "VERSION", "2", "chore: bump")
	pair.PushFromOther(t, "auth/legacy.txt", "gone", "feat!: remove legacy auth")

	m := newMonitor(t, pair.Local, newClock())
	res, err := m.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Behind)
	assert.Equal(t, 0, res.Ahead)
	assert.Len(t, res.Commits, 3)
	require.Len(t, res.BreakingChanges, 1)
	assert.Equal(t, "feat!: remove legacy auth", res.BreakingChanges[0].Subject)
	assert.Equal(t, "conventional-marker", res.BreakingChanges[0].Rule)

	report := BuildSyncReport(res)
	assert.Contains(t, report, "BREAKING CHANGES")
	assert.Contains(t, report, "feat!: remove legacy auth")
	assert.Contains(t, report, "3 commit(s) behind remote")
	assert.Contains(t, report, "git pull origin main")

	last := m.LastCheck(ctx)
	require.NotNil(t, last)
	assert.Equal(t, 3, last.Result.Behind)
	assert.Equal(t, 1, last.Result.BreakingChanges)
}

func TestRunDependencyAndHighImpactChanges(t *testing.T) {
	ctx := context.Background()
	pair := testutil.SetupRemotePair(t)
	pair.PushFromOther(t, "package.json", `{"name":"x"}`, "build: add deps")
	pair.PushFromOther(t, "lib/core/session.dart", "class S {}", "feat: session core")
	testutil.CreateCommit(t, pair.Local, "local.txt", "mine")

	m := newMonitor(t, pair.Local, newClock())
	res, err := m.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Behind)
	assert.Equal(t, 1, res.Ahead)
	assert.Equal(t, []string{"package.json"}, res.DependencyChanges)
	assert.Equal(t, []string{"lib/core/session.dart"}, res.HighImpactChanges)
	assert.Equal(t, "npm install", res.InstallCommand)

	report := BuildSyncReport(res)
	assert.Contains(t, report, "Dependency files changed")
	assert.Contains(t, report, "npm install")
	assert.Contains(t, report, "Core/shared code changed")
	assert.Contains(t, report, "1 commit(s) ahead of remote")
	assert.NotContains(t, report, "local.txt")
}

func TestRunWithoutFetchUsesKnownRefs(t *testing.T) {
	ctx := context.Background()
	pair := testutil.SetupRemotePair(t)
	pair.PushFromOther(t, "a.txt", "1", "feat: a")

	settings := DefaultSettings()
	settings.Fetch = false
	m := newMonitor(t, pair.Local, newClock(), WithSettings(settings))

	res, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Behind, "origin/main is unchanged until fetched")
}

func TestRunSkips(t *testing.T) {
	ctx := context.Background()
	testutil.RequireGit(t)

	t.Run("not a repository", func(t *testing.T) {
		m := newMonitor(t, t.TempDir(), newClock())
		res, err := m.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, res.Status)
		assert.Equal(t, ReasonNotARepository, res.Reason)
		assert.Empty(t, BuildSyncReport(res))
	})

	t.Run("no tracking branch", func(t *testing.T) {
		dir := t.TempDir()
		testutil.InitGitRepo(t, dir)
		m := newMonitor(t, dir, newClock())
		res, err := m.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReasonNoTrackingBranch, res.Reason)
		assert.Equal(t, "origin/main", res.TrackingBranch)
	})

	t.Run("detached head", func(t *testing.T) {
		dir := t.TempDir()
		testutil.InitGitRepo(t, dir)
		testutil.RunGitCommand(t, dir, "checkout", "--detach")
		m := newMonitor(t, dir, newClock())
		res, err := m.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, ReasonDetachedHead, res.Reason)
	})
}

func TestShouldRunThrottle(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	root := t.TempDir()
	m := newMonitor(t, root, clock)

	assert.True(t, m.ShouldRun(ctx), "missing cache")

	_, ran, err := m.RunIfDue(ctx, false)
	require.NoError(t, err)
	assert.True(t, ran)

	clock.Advance(4*time.Minute + 59*time.Second)
	assert.False(t, m.ShouldRun(ctx))
	res, ran, err := m.RunIfDue(ctx, false)
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Nil(t, res)

	_, ran, err = m.RunIfDue(ctx, true)
	require.NoError(t, err)
	assert.True(t, ran, "force bypasses the TTL")

	clock.Advance(5 * time.Minute)
	assert.True(t, m.ShouldRun(ctx))
}

func TestShouldRunCorruptOrFutureCache(t *testing.T) {
	ctx := context.Background()
	clock := newClock()
	root := t.TempDir()
	m := newMonitor(t, root, clock)

	cacheFile := filepath.Join(root, ".coord", "cache", CacheKey+".json")
	require.NoError(t, os.MkdirAll(filepath.Dir(cacheFile), 0755))
	require.NoError(t, os.WriteFile(cacheFile, []byte(`{"timestamp": "yesterday`), 0644))
	assert.True(t, m.ShouldRun(ctx))

	require.NoError(t, registry.PutJSON(ctx, m.cache, coord.CacheBucket, CacheKey,
		&SyncCacheRecord{Timestamp: clock.Now().Add(time.Hour)}))
	assert.True(t, m.ShouldRun(ctx))
}

func TestFileDivergence(t *testing.T) {
	ctx := context.Background()
	pair := testutil.SetupRemotePair(t)
	testutil.CreateCommit(t, pair.Local, "shared.txt", "base\n")
	testutil.RunGitCommand(t, pair.Local, "push", "origin", "main")
	testutil.RunGitCommand(t, pair.Other, "pull", "origin", "main")
	pair.PushFromOther(t, "shared.txt", "base\nremote line\n", "fix: shared tweak")

	m := newMonitor(t, pair.Local, newClock())

	d, err := m.FileDivergence(ctx, "shared.txt")
	require.NoError(t, err)
	assert.Nil(t, d, "nothing fetched yet")

	_, err = m.Run(ctx)
	require.NoError(t, err)

	d, err = m.FileDivergence(ctx, filepath.Join(pair.Local, "shared.txt"))
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "shared.txt", d.Path)
	assert.Equal(t, "origin/main", d.TrackingBranch)
	require.Len(t, d.Commits, 1)
	assert.Equal(t, "fix: shared tweak", d.Commits[0].Subject)
	assert.Contains(t, d.Diff, "+remote line")
	assert.LessOrEqual(t, len(d.Diff), DivergenceDiffBytes)

	d, err = m.FileDivergence(ctx, "README.md")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestFileDivergenceUnavailable(t *testing.T) {
	testutil.RequireGit(t)
	m := newMonitor(t, t.TempDir(), newClock())
	_, err := m.FileDivergence(context.Background(), "x.go")
	assert.Error(t, err)
}
