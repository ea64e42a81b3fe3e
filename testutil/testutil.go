package testutil

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// RequireGit skips the test if the git binary is not available
func RequireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

// gitEnv isolates test repositories from the user's global git config.
func gitEnv() []string {
	return append(os.Environ(),
		"GIT_CONFIG_GLOBAL=/dev/null",
		"GIT_CONFIG_NOSYSTEM=1",
		"GIT_AUTHOR_NAME=Test User",
		"GIT_AUTHOR_EMAIL=test@example.com",
		"GIT_COMMITTER_NAME=Test User",
		"GIT_COMMITTER_EMAIL=test@example.com",
	)
}

// InitGitRepo initializes a git repository on branch main with one commit
func InitGitRepo(t *testing.T, dir string) {
	t.Helper()
	RequireGit(t)

	RunGitCommand(t, dir, "init")
	RunGitCommand(t, dir, "config", "user.name", "Test User")
	RunGitCommand(t, dir, "config", "user.email", "test@example.com")
	RunGitCommand(t, dir, "config", "commit.gpgsign", "false")

	CreateCommit(t, dir, "README.md", "# Test Project\n")

	// Ignore error as branch might already be named main
	cmd := exec.Command("git", "branch", "-m", "main")
	cmd.Dir = dir
	cmd.Env = gitEnv()
	_ = cmd.Run()
}

// RemotePair is a working clone tracking a bare remote, plus a second
// clone used to push commits the first one has not seen.
type RemotePair struct {
	Local string
	Bare  string
	Other string
}

// SetupRemotePair creates a bare "origin", pushes main to it, and clones
// it a second time. Local tracks origin/main.
func SetupRemotePair(t *testing.T) *RemotePair {
	t.Helper()
	RequireGit(t)

	root := t.TempDir()
	p := &RemotePair{
		Local: filepath.Join(root, "local"),
		Bare:  filepath.Join(root, "origin.git"),
		Other: filepath.Join(root, "other"),
	}
	require.NoError(t, os.MkdirAll(p.Local, 0755))
	require.NoError(t, os.MkdirAll(p.Bare, 0755))

	RunGitCommand(t, p.Bare, "init", "--bare")
	RunGitCommand(t, p.Bare, "symbolic-ref", "HEAD", "refs/heads/main")
	InitGitRepo(t, p.Local)
	RunGitCommand(t, p.Local, "remote", "add", "origin", p.Bare)
	RunGitCommand(t, p.Local, "push", "-u", "origin", "main")

	RunGitCommand(t, root, "clone", "-b", "main", p.Bare, p.Other)
	RunGitCommand(t, p.Other, "config", "user.name", "Other User")
	RunGitCommand(t, p.Other, "config", "user.email", "other@example.com")
	RunGitCommand(t, p.Other, "config", "commit.gpgsign", "false")

	return p
}

// PushFromOther commits a file in the second clone and pushes it to origin.
func (p *RemotePair) PushFromOther(t *testing.T, filename, content, message string) {
	t.Helper()

	WriteFile(t, p.Other, filename, content)
	RunGitCommand(t, p.Other, "add", filename)
	RunGitCommand(t, p.Other, "commit", "-m", message)
	RunGitCommand(t, p.Other, "push", "origin", "main")
}

// CreateBranch creates and checks out a new git branch
func CreateBranch(t *testing.T, dir, branch string) {
	t.Helper()
	RunGitCommand(t, dir, "checkout", "-b", branch)
}

// RandomString generates a random string of the specified length
func RandomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)[:length]
}

// RunGitCommand runs a git command in the given directory and returns its
// trimmed stdout
func RunGitCommand(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = gitEnv()
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to run git %v: %v\n%s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

// WriteFile writes content to dir/filename, creating parent directories
func WriteFile(t *testing.T, dir, filename, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(filename))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// CreateCommit creates a file and commits it
func CreateCommit(t *testing.T, dir, filename, content string) {
	t.Helper()

	WriteFile(t, dir, filename, content)
	RunGitCommand(t, dir, "add", filename)
	RunGitCommand(t, dir, "commit", "-m", "Add "+filename)
}

// Clock is a settable clock for tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock frozen at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
