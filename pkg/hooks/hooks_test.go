package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/project"
	"github.com/grovetools/coord/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	root  string
	cfg   *config.Config
	clock *testutil.Clock
}

func newHarness(t *testing.T, root string) *harness {
	t.Helper()
	for _, key := range []string{
		coord.EnvProjectDir, coord.EnvClaudeProjectDir,
		coord.EnvSessionID, coord.EnvClaudeSessionID,
		config.EnvConflictMode, config.EnvCoordConflictMode, config.EnvRedisURL,
	} {
		t.Setenv(key, "")
	}
	t.Setenv("COORD_HOME", t.TempDir())
	return &harness{
		root:  root,
		cfg:   config.Default(),
		clock: testutil.NewClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
}

// run executes a hook for sessionID with the given payload fields and
// returns the exit code, stdout and stderr.
func (h *harness) run(t *testing.T, name, sessionID string, p Payload) (int, string, string) {
	t.Helper()
	p.SessionID = sessionID
	p.Cwd = h.root
	data, err := json.Marshal(p)
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	r := NewRunner(bytes.NewReader(data), &stdout, &stderr)
	r.Open = func(ctx context.Context, opts project.Options) (*project.Project, error) {
		opts.Config = h.cfg
		opts.Now = h.clock.Now
		return project.Open(ctx, opts)
	}
	code := r.Run(context.Background(), name)
	return code, stdout.String(), stderr.String()
}

func edit(path string) Payload {
	return Payload{ToolName: models.ToolEdit, ToolInput: ToolInput{FilePath: path}}
}

func TestReadPayload(t *testing.T) {
	p, err := ReadPayload(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "", p.TargetPath())

	p, err = ReadPayload(strings.NewReader(`{"session_id":"s-1","tool_name":"Write","tool_input":{"path":"a.go","content":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, "s-1", p.SessionID)
	assert.Equal(t, "Write", p.ToolName)
	assert.Equal(t, "a.go", p.TargetPath())

	p, err = ReadPayload(strings.NewReader(`{"tool_input":{"file_path":"b.go","path":"a.go"}}`))
	require.NoError(t, err)
	assert.Equal(t, "b.go", p.TargetPath())

	_, err = ReadPayload(strings.NewReader(`{not json`))
	assert.Error(t, err)
}

func TestRunFailsOpen(t *testing.T) {
	var out bytes.Buffer
	r := NewRunner(strings.NewReader(`{not json`), &out, &out)
	assert.Equal(t, 0, r.Run(context.Background(), "conflict-check"))
	assert.Equal(t, 0, r.Run(context.Background(), "no-such-hook"))

	register(Hook{Name: "test-panic", Handle: func(context.Context, *Env) (int, error) {
		panic("boom")
	}})
	defer delete(known, "test-panic")

	h := newHarness(t, t.TempDir())
	code, _, _ := h.run(t, "test-panic", "s-1", Payload{})
	assert.Equal(t, 0, code)

	r = NewRunner(strings.NewReader(`{}`), &out, &out)
	r.Open = func(context.Context, project.Options) (*project.Project, error) {
		return nil, assert.AnError
	}
	assert.Equal(t, 0, r.Run(context.Background(), "track"))
}

func TestAllHooksSorted(t *testing.T) {
	var names []string
	for _, h := range All() {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{"conflict-check", "session-end", "session-start", "sync-check", "track"}, names)
}

func TestSessionLifecycleHooks(t *testing.T) {
	root := t.TempDir()
	testutil.InitGitRepo(t, root)
	h := newHarness(t, root)

	code, out, _ := h.run(t, "session-start", "alice-1", Payload{HookEventName: "SessionStart"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "[SESSION] alice-1 on branch main")

	code, _, _ = h.run(t, "session-start", "alice-1", Payload{})
	assert.Equal(t, 0, code, "second start heartbeats")

	code, out, _ = h.run(t, "track", "alice-1", Payload{ToolName: models.ToolRead, ToolInput: ToolInput{FilePath: "README.md"}})
	assert.Equal(t, 0, code)
	assert.Empty(t, out)

	code, _, _ = h.run(t, "track", "alice-1", edit(filepath.Join(root, "README.md")))
	assert.Equal(t, 0, code)

	p, err := project.Open(context.Background(), project.Options{Dir: root, SessionID: "alice-1", Config: h.cfg, Now: h.clock.Now})
	require.NoError(t, err)
	defer p.Close()
	rec, err := p.Sessions.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Stats.Reads)
	assert.Equal(t, 1, rec.Stats.Edits)
	require.Contains(t, rec.Files, "README.md")
	w, err := p.WIP().Get(context.Background(), "alice-1")
	require.NoError(t, err)
	assert.Contains(t, w.Files, "README.md")

	code, _, _ = h.run(t, "session-end", "alice-1", Payload{})
	assert.Equal(t, 0, code)
	rec, err = p.Sessions.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, rec.Status)
	_, err = p.WIP().Get(context.Background(), "alice-1")
	assert.Error(t, err)

	code, _, _ = h.run(t, "session-end", "never-registered", Payload{})
	assert.Equal(t, 0, code)
}

func TestTrackWarnsAboutOtherSessions(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, root, "src/app.go", "package app\n")
	h := newHarness(t, root)
	path := filepath.Join(root, "src/app.go")

	code, out, _ := h.run(t, "track", "bob-1", edit(path))
	assert.Equal(t, 0, code)
	assert.Empty(t, out)

	h.clock.Advance(3 * time.Minute)
	code, out, _ = h.run(t, "track", "alice-1", edit(path))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "[WIP] Potential conflict detected")
	assert.Contains(t, out, "File: src/app.go")
	assert.Contains(t, out, "(1 edit, last 3m ago)")

	code, out, _ = h.run(t, "track", "alice-1", edit(filepath.Join(t.TempDir(), "elsewhere.go")))
	assert.Equal(t, 0, code)
	assert.Empty(t, out)
}

func TestConflictCheckWarnAndBlock(t *testing.T) {
	pair := testutil.SetupRemotePair(t)
	testutil.CreateCommit(t, pair.Local, "src/app.go", "package app\n")
	testutil.RunGitCommand(t, pair.Local, "push", "origin", "main")
	testutil.RunGitCommand(t, pair.Other, "pull", "origin", "main")
	h := newHarness(t, pair.Local)
	path := filepath.Join(pair.Local, "src/app.go")

	code, out, errOut := h.run(t, "conflict-check", "alice-1", edit(path))
	assert.Equal(t, 0, code)
	assert.Empty(t, out)
	assert.Empty(t, errOut)

	code, _, _ = h.run(t, "track", "bob-1", edit(path))
	require.Equal(t, 0, code)

	h.cfg.Coordination.ConflictMode = config.ModeBlock
	code, out, errOut = h.run(t, "conflict-check", "alice-1", edit(path))
	assert.Equal(t, 0, code, "wip alone is a warning")
	assert.Contains(t, out, "Potential conflicts detected")
	assert.Empty(t, errOut)

	pair.PushFromOther(t, "src/app.go", "package app\n\nvar y = 2\n", "fix: remote edit")
	testutil.RunGitCommand(t, pair.Local, "fetch", "origin")

	code, out, errOut = h.run(t, "conflict-check", "alice-1", edit(path))
	assert.Equal(t, 2, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "CRITICAL CONFLICT")
	assert.Contains(t, errOut, "Set CONFLICT_CHECK_MODE=warn to proceed anyway")

	h.cfg.Coordination.ConflictMode = config.ModeWarn
	code, out, _ = h.run(t, "conflict-check", "alice-1", edit(path))
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "CRITICAL CONFLICT")

	h.cfg.Coordination.ConflictMode = config.ModeSkip
	code, out, errOut = h.run(t, "conflict-check", "alice-1", edit(path))
	assert.Equal(t, 0, code)
	assert.Empty(t, out)
	assert.Empty(t, errOut)

	h.cfg.Coordination.ConflictMode = config.ModeBlock
	code, _, _ = h.run(t, "conflict-check", "alice-1", Payload{ToolName: models.ToolRead, ToolInput: ToolInput{FilePath: path}})
	assert.Equal(t, 0, code, "reads are never checked")
	code, _, _ = h.run(t, "conflict-check", "alice-1", Payload{
		ToolName:  models.ToolWrite,
		ToolInput: ToolInput{FilePath: filepath.Join(pair.Local, "src/new.go")},
	})
	assert.Equal(t, 0, code, "creating a file is always allowed")
}

func TestSyncCheckThrottled(t *testing.T) {
	pair := testutil.SetupRemotePair(t)
	pair.PushFromOther(t, "package.json", `{"name":"x"}`, "feat!: new api")
	h := newHarness(t, pair.Local)

	code, out, _ := h.run(t, "sync-check", "alice-1", Payload{HookEventName: "UserPromptSubmit"})
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "[REMOTE-SYNC]")
	assert.Contains(t, out, "BREAKING CHANGES")
	assert.Contains(t, out, "npm install")

	h.clock.Advance(time.Minute)
	code, out, _ = h.run(t, "sync-check", "alice-1", Payload{})
	assert.Equal(t, 0, code)
	assert.Empty(t, out, "within the TTL")

	h.clock.Advance(5 * time.Minute)
	_, out, _ = h.run(t, "sync-check", "alice-1", Payload{})
	assert.Contains(t, out, "[REMOTE-SYNC]")
}

func TestWipWarning(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	text := WipWarning("a.go", []models.Conflict{
		{Developer: "bob", Hostname: "mbp", AccessCount: 4, LastAccess: now.Add(-90 * time.Second)},
	}, now)
	assert.Contains(t, text, "bob@mbp (4 edits, last 1m ago)")
	assert.Contains(t, text, "Consider coordinating")
}
