package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/profiling"
	"github.com/grovetools/coord/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		coord.EnvProjectDir, coord.EnvClaudeProjectDir,
		coord.EnvSessionID, coord.EnvClaudeSessionID,
		config.EnvConflictMode, config.EnvCoordConflictMode, config.EnvRedisURL,
	} {
		t.Setenv(key, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("COORD_HOME", t.TempDir())
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestSessionCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	testutil.InitGitRepo(t, dir)

	out, _, err := run(t, "", "session", "register", "-C", dir, "--session", "alice-1", "--working-on", "auth refactor")
	require.NoError(t, err)
	assert.Contains(t, out, "Session registered: alice-1")
	assert.Contains(t, out, "Branch:    main")

	_, _, err = run(t, "", "session", "register", "-C", dir, "--session", "alice-1")
	assert.True(t, errors.Is(err, errors.ErrCodeSessionExists))

	_, _, err = run(t, "", "session", "register", "-C", dir, "--session", "bob-1")
	require.NoError(t, err)

	out, _, err = run(t, "", "session", "list", "-C", dir, "--session", "alice-1")
	require.NoError(t, err)
	assert.Contains(t, out, "alice-1 *")
	assert.Contains(t, out, "bob-1")
	assert.Contains(t, out, "auth refactor")

	out, _, err = run(t, "", "session", "status", "-C", dir, "--session", "alice-1", "--json")
	require.NoError(t, err)
	var st struct {
		CurrentSession string `json:"currentSession"`
		Registered     bool   `json:"registered"`
		Active         int    `json:"active"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "alice-1", st.CurrentSession)
	assert.True(t, st.Registered)
	assert.Equal(t, 2, st.Active)

	out, _, err = run(t, "", "session", "heartbeat", "-C", dir, "--session", "bob-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Heartbeat sent for bob-1")

	out, _, err = run(t, "", "session", "end", "-C", dir, "--session", "bob-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Session ended: bob-1")

	out, _, err = run(t, "", "session", "cleanup", "-C", dir, "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"sessions": 1`)

	out, _, err = run(t, "", "session", "list", "-C", dir, "--session", "alice-1", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "alice-1")
	assert.NotContains(t, out, "bob-1")
}

func TestHookAndConflictsCommands(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	testutil.InitGitRepo(t, dir)
	target := filepath.Join(dir, "README.md")

	payload := `{"session_id":"bob-1","tool_name":"Edit","tool_input":{"file_path":"` + target + `"},"cwd":"` + dir + `"}`
	_, _, err := run(t, payload, "hook", "track")
	require.NoError(t, err)

	out, _, err := run(t, "", "wip", "list", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "bob-1")
	assert.Contains(t, out, "README.md")

	out, _, err = run(t, "", "conflicts", "check", target, "-C", dir, "--session", "alice-1", "--mode", "block")
	require.NoError(t, err, "wip conflicts alone never block")
	assert.Contains(t, out, "Severity: warning")
	assert.Contains(t, out, "ACTIVE CONFLICT")

	out, _, err = run(t, "", "conflicts", "check", target, "-C", dir, "--session", "bob-1")
	require.NoError(t, err)
	assert.Contains(t, out, "No conflicts for")

	_, _, err = run(t, "", "conflicts", "check", target, "-C", dir, "--op", "delete")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	_, _, err = run(t, "{not json", "hook", "conflict-check")
	assert.NoError(t, err, "hooks fail open")
}

func TestConflictsCheckResolvesRelativePathFromWorkingDir(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	testutil.InitGitRepo(t, dir)
	testutil.WriteFile(t, dir, "lib/a.dart", "void main() {}\n")
	target := filepath.Join(dir, "lib", "a.dart")

	payload := `{"session_id":"bob-1","tool_name":"Edit","tool_input":{"file_path":"` + target + `"},"cwd":"` + dir + `"}`
	_, _, err := run(t, payload, "hook", "track")
	require.NoError(t, err)

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Join(dir, "lib")))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })
	out, _, err := run(t, "", "conflicts", "check", "a.dart", "-C", dir, "--session", "alice-1")
	require.NoError(t, err)
	assert.Contains(t, out, "ACTIVE CONFLICT")
	assert.NotContains(t, out, "No conflicts")
}

func TestFileListSkipsNullEntries(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	rec := &models.WipRecord{Files: map[string]*models.FileAccessRecord{
		"lib/a.dart": {LastAccess: now},
		"lib/b.dart": nil,
		"lib/c.dart": {LastAccess: now.Add(time.Minute)},
	}}

	assert.NotPanics(t, func() {
		assert.Equal(t, "lib/c.dart, lib/a.dart", fileList(rec, 3))
	})
	assert.Equal(t, "lib/c.dart (+1 more)", fileList(rec, 1))
}

func TestConflictsCheckExitCode(t *testing.T) {
	isolate(t)
	pair := testutil.SetupRemotePair(t)
	testutil.CreateCommit(t, pair.Local, "app.go", "package app\n")
	testutil.RunGitCommand(t, pair.Local, "push", "origin", "main")
	testutil.RunGitCommand(t, pair.Other, "pull", "origin", "main")
	pair.PushFromOther(t, "app.go", "package app\n\nvar z = 3\n", "fix: remote")
	testutil.RunGitCommand(t, pair.Local, "fetch", "origin")
	target := filepath.Join(pair.Local, "app.go")

	payload := `{"session_id":"bob-1","tool_name":"Write","tool_input":{"file_path":"` + target + `"},"cwd":"` + pair.Local + `"}`
	_, _, err := run(t, payload, "hook", "track")
	require.NoError(t, err)

	_, _, err = run(t, "", "conflicts", "check", target, "-C", pair.Local, "--session", "alice-1", "--mode", "block")
	var exit *ExitCodeError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.Code)

	blocked := `{"session_id":"alice-1","tool_name":"Edit","tool_input":{"file_path":"` + target + `"},"cwd":"` + pair.Local + `"}`
	t.Setenv(config.EnvConflictMode, "block")
	_, stderr, err := run(t, blocked, "hook", "conflict-check")
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.Code)
	assert.Contains(t, stderr, "CRITICAL CONFLICT")

	out, _, err := run(t, "", "sync", "-C", pair.Local, "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "1 commit(s) behind remote")
}

func TestPathsConfigAndVersion(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	out, _, err := run(t, "", "paths", "-C", dir, "--session", "s-1")
	require.NoError(t, err)
	var paths PathsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &paths))
	assert.Equal(t, filepath.Join(paths.ProjectRoot, ".coord"), paths.RegistryDir)
	assert.Equal(t, filepath.Join(paths.RegistryDir, "wip"), paths.WipDir)

	out, _, err = run(t, "", "config", "schema")
	require.NoError(t, err)
	assert.Contains(t, out, `"coordination"`)

	out, _, err = run(t, "", "config", "show", "-C", dir, "--session", "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "conflict_mode: warn")

	out, _, err = run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "coord ")
}

func TestLogHelpers(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "hook-track-2025-03-01.log", `{"level":"info","msg":"Recorded","component":"hook-track","time":"2025-03-01T09:00:00Z","path":"a.go"}`+"\n")
	testutil.WriteFile(t, dir, "sync-2025-03-01.log", "plain line\n")
	testutil.WriteFile(t, dir, "notes.txt", "ignored\n")
	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "sync-2025-03-01.log"), old, old))

	files := findLogFiles(dir, "")
	require.Len(t, files, 2)
	assert.Equal(t, "sync-2025-03-01.log", filepath.Base(files[0]), "oldest first")
	assert.Len(t, findLogFiles(dir, "hook-track"), 1)

	var lines []logLine
	readLog(context.Background(), files[1], false, func(l logLine) bool {
		lines = append(lines, l)
		return true
	})
	require.Len(t, lines, 1)

	s := cli.NewStyles(&bytes.Buffer{})
	text := formatLogLine(s, lines[0].Text)
	assert.Equal(t, "09:00:00 INFO [hook-track] Recorded path=a.go", text)
	assert.Equal(t, "plain line", formatLogLine(s, "plain line"))

	assert.True(t, componentMatches(lines[0].Text, "hook-track"))
	assert.False(t, componentMatches(lines[0].Text, "sync"))
	assert.True(t, componentMatches("plain line", "sync"))
}

func TestTimingFlagPrintsSpansToStderr(t *testing.T) {
	isolate(t)
	t.Cleanup(profiling.Reset)
	dir := t.TempDir()
	testutil.InitGitRepo(t, dir)

	out, errOut, err := run(t, "", "paths", "-C", dir, "--json", "--timing")
	require.NoError(t, err)
	assert.NotContains(t, out, "timing")
	assert.Contains(t, errOut, "timing (total")
	assert.Contains(t, errOut, "project.open")
}
