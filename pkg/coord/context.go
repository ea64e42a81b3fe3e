// Package coord holds the coordination context shared by every component:
// where the project and registry live, who the current session is, the
// liveness thresholds, and the clock.
package coord

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/pkg/paths"
	"github.com/grovetools/coord/util/pathutil"
	"github.com/grovetools/coord/util/sanitize"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"
)

// Registry layout under the registry directory.
const (
	SessionsBucket = "sessions"
	WipBucket      = "wip"
	CacheBucket    = "cache"
	LogsDir        = "logs"
)

// Thresholds are the age limits that drive classification and throttling.
type Thresholds struct {
	Stale   time.Duration
	Zombie  time.Duration
	SyncTTL time.Duration
}

// DefaultThresholds returns 30m stale, 2h zombie and a 5m sync TTL.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Stale:   30 * time.Minute,
		Zombie:  2 * time.Hour,
		SyncTTL: 5 * time.Minute,
	}
}

// Identity describes the developer and machine a session runs on.
type Identity struct {
	Developer string
	Hostname  string
	Platform  string
	PID       int
}

// Owner names the developer, host and agent process a remembered session
// id belongs to.
func (id Identity) Owner() string {
	return fmt.Sprintf("%s@%s/%d", id.Developer, id.Hostname, id.PID)
}

// CurrentIdentity inspects the running process.
func CurrentIdentity() Identity {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return Identity{
		Developer: currentUser(),
		Hostname:  host,
		Platform:  runtime.GOOS,
		PID:       os.Getppid(),
	}
}

func currentUser() string {
	for _, key := range []string{"USER", "USERNAME", "LOGNAME"} {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "unknown"
}

// Context is passed explicitly to every component instead of reading
// process-wide state.
type Context struct {
	// RootDir is the absolute project root.
	RootDir string
	// RegistryDir is the absolute directory holding sessions, wip and cache.
	RegistryDir string
	// SessionID identifies the calling session.
	SessionID string
	// StateDir holds per-user state outside the shared registry. Empty
	// means the XDG state directory.
	StateDir string

	Identity   Identity
	Thresholds Thresholds

	// Now is the clock; tests replace it.
	Now    func() time.Time
	Logger *logrus.Entry

	ignore *patternmatcher.PatternMatcher
}

// Option customises a Context.
type Option func(*Context) error

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Context) error {
		c.Now = now
		return nil
	}
}

// WithThresholds replaces the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(c *Context) error {
		c.Thresholds = t
		return nil
	}
}

// WithLogger sets the logger components log through.
func WithLogger(l *logrus.Entry) Option {
	return func(c *Context) error {
		c.Logger = l
		return nil
	}
}

// WithIdentity overrides the detected developer and host.
func WithIdentity(id Identity) Option {
	return func(c *Context) error {
		c.Identity = id
		return nil
	}
}

// WithRegistryDir places the registry somewhere other than <root>/.coord.
// Relative paths are resolved against the root.
func WithRegistryDir(dir string) Option {
	return func(c *Context) error {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(c.RootDir, dir)
		}
		c.RegistryDir = filepath.Clean(dir)
		return nil
	}
}

// WithStateDir places per-user state somewhere other than the XDG state
// directory.
func WithStateDir(dir string) Option {
	return func(c *Context) error {
		c.StateDir = dir
		return nil
	}
}

// WithIgnore sets the glob patterns excluded from conflict checks and
// tracking.
func WithIgnore(patterns []string) Option {
	return func(c *Context) error {
		pm, err := patternmatcher.New(patterns)
		if err != nil {
			return fmt.Errorf("invalid ignore pattern: %w", err)
		}
		c.ignore = pm
		return nil
	}
}

// New builds a Context for root and sessionID with defaults for everything
// else.
func New(root, sessionID string, opts ...Option) (*Context, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	discard := logrus.New()
	discard.SetOutput(nopWriter{})

	c := &Context{
		RootDir:     absRoot,
		RegistryDir: filepath.Join(absRoot, config.DefaultRegistryDir),
		SessionID:   sessionID,
		Identity:    CurrentIdentity(),
		Thresholds:  DefaultThresholds(),
		Now:         time.Now,
		Logger:      logrus.NewEntry(discard),
	}
	if err := WithIgnore(config.DefaultIgnore)(c); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// FromConfig builds a Context whose thresholds, registry directory and
// ignore list come from cfg.
func FromConfig(root, sessionID string, cfg *config.Config, opts ...Option) (*Context, error) {
	base := []Option{
		WithRegistryDir(cfg.Coordination.RegistryDir),
		WithThresholds(Thresholds{
			Stale:   cfg.StaleThreshold(),
			Zombie:  cfg.ZombieThreshold(),
			SyncTTL: cfg.SyncTTL(),
		}),
		WithIgnore(cfg.Coordination.Ignore),
	}
	return New(root, sessionID, append(base, opts...)...)
}

// Clock returns the current time in UTC.
func (c *Context) Clock() time.Time {
	return c.Now().UTC()
}

// BucketDir returns the directory of a registry bucket.
func (c *Context) BucketDir(bucket string) string {
	return filepath.Join(c.RegistryDir, bucket)
}

// LogDir returns the directory component logs are written to.
func (c *Context) LogDir() string {
	return filepath.Join(c.RegistryDir, LogsDir)
}

// StatePath returns this user's state file for the project. It lives under
// the XDG state directory, never in the shared registry, so remembered
// session ids are not picked up by other developers or machines.
func (c *Context) StatePath() string {
	dir := c.StateDir
	if dir == "" {
		dir = paths.StateDir()
	}
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "coord-"+sanitize.ForFilename(c.Identity.Developer))
	}
	sum := sha256.Sum256([]byte(c.RootDir))
	name := sanitize.ForFilename(filepath.Base(c.RootDir)) + "-" + hex.EncodeToString(sum[:6]) + ".yml"
	return filepath.Join(dir, "projects", name)
}

// RelPath normalizes an absolute or root-relative path into the
// slash-separated key used in file maps. ok is false for paths outside the
// project.
func (c *Context) RelPath(path string) (string, bool) {
	return pathutil.RelativeKey(c.RootDir, path)
}

// Ignored reports whether a project-relative key matches the ignore list
// or lives inside the registry directory.
func (c *Context) Ignored(rel string) bool {
	if regRel, ok := pathutil.RelativeKey(c.RootDir, c.RegistryDir); ok {
		if rel == regRel || strings.HasPrefix(rel, regRel+"/") {
			return true
		}
	}
	if c.ignore == nil {
		return false
	}
	matched, err := c.ignore.MatchesOrParentMatches(filepath.FromSlash(rel))
	return err == nil && matched
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
