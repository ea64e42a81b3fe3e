// Package syncmon is the remote sync monitor: a throttled check of how far
// the local branch has diverged from its tracking branch, and whether the
// remote side changed dependencies, core paths, or announced breaking
// changes.
package syncmon

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/conventional"
	"github.com/grovetools/coord/git"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/registry"
)

// Skip reasons recorded in Result.Reason.
const (
	ReasonNotARepository   = "not-a-repository"
	ReasonDetachedHead     = "detached-head"
	ReasonNoTrackingBranch = "no-tracking-branch"
	ReasonGitError         = "git-error"
)

// Result statuses.
const (
	StatusChecked = "checked"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Settings tune what a run inspects.
type Settings struct {
	DefaultRemote   string
	MaxCommits      int
	Fetch           bool
	DependencyFiles []string
	HighImpactPaths []string
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return SettingsFromConfig(config.Default())
}

// SettingsFromConfig reads the sync section of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	s := cfg.Sync
	return Settings{
		DefaultRemote:   s.DefaultRemote,
		MaxCommits:      s.MaxCommits,
		Fetch:           cfg.FetchEnabled(),
		DependencyFiles: append([]string(nil), s.DependencyFiles...),
		HighImpactPaths: append([]string(nil), s.HighImpactPaths...),
	}
}

// BreakingCommit is a remote commit whose subject announces a breaking
// change.
type BreakingCommit struct {
	git.Commit
	Rule string `json:"rule"`
}

// Result is the full outcome of one run.
type Result struct {
	Status            string           `json:"status"`
	Reason            string           `json:"reason,omitempty"`
	Branch            string           `json:"branch,omitempty"`
	TrackingBranch    string           `json:"trackingBranch,omitempty"`
	Behind            int              `json:"behind"`
	Ahead             int              `json:"ahead"`
	Commits           []git.Commit     `json:"commits"`
	BreakingChanges   []BreakingCommit `json:"breakingChanges"`
	DependencyChanges []string         `json:"dependencyChanges"`
	HighImpactChanges []string         `json:"highImpactChanges"`
	InstallCommand    string           `json:"installCommand,omitempty"`
	FetchFailed       bool             `json:"fetchFailed,omitempty"`
	CheckedAt         time.Time        `json:"checkedAt"`
}

// Skipped reports whether the run stopped before comparing branches.
func (r *Result) Skipped() bool {
	return r.Status != StatusChecked
}

// Monitor runs remote sync checks for the project in its Context.
type Monitor struct {
	c        *coord.Context
	git      git.Provider
	cache    registry.Store
	settings Settings
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithGit replaces the git client.
func WithGit(p git.Provider) Option {
	return func(m *Monitor) { m.git = p }
}

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(m *Monitor) { m.settings = s }
}

// NewMonitor builds a monitor whose throttle cache lives in cache.
func NewMonitor(c *coord.Context, cache registry.Store, opts ...Option) *Monitor {
	m := &Monitor{
		c:        c,
		git:      git.NewCLIRepository(),
		cache:    cache,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run performs one check and records it in the throttle cache. Git
// failures are reported through Result.Status, never as an error; the
// error return covers only the cache write.
func (m *Monitor) Run(ctx context.Context) (*Result, error) {
	res := m.check(ctx)
	if err := m.markChecked(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

func (m *Monitor) check(ctx context.Context) *Result {
	res := &Result{
		Status:            StatusChecked,
		Commits:           []git.Commit{},
		BreakingChanges:   []BreakingCommit{},
		DependencyChanges: []string{},
		HighImpactChanges: []string{},
		CheckedAt:         m.c.Clock(),
	}
	dir := m.c.RootDir
	log := m.c.Logger

	skip := func(reason string) *Result {
		res.Status = StatusSkipped
		res.Reason = reason
		log.Debugf("Sync check skipped: %s", reason)
		return res
	}
	fail := func(err error) *Result {
		res.Status = StatusFailed
		res.Reason = ReasonGitError
		log.WithError(err).Debug("Sync check failed")
		return res
	}

	if !m.git.IsGitRepo(ctx, dir) {
		return skip(ReasonNotARepository)
	}
	branch, err := m.git.CurrentBranch(ctx, dir)
	if err != nil {
		return fail(err)
	}
	if branch == "HEAD" || branch == "" {
		return skip(ReasonDetachedHead)
	}
	res.Branch = branch

	tracking, err := m.git.TrackingBranch(ctx, dir, branch, m.settings.DefaultRemote)
	if err != nil {
		return fail(err)
	}
	res.TrackingBranch = tracking

	if m.settings.Fetch {
		if err := m.git.Fetch(ctx, dir, git.RemoteOf(tracking)); err != nil {
			res.FetchFailed = true
			log.WithError(err).Debug("Fetch failed; comparing against last fetched refs")
		}
	}

	if !m.git.RefExists(ctx, dir, tracking) {
		return skip(ReasonNoTrackingBranch)
	}

	if res.Behind, err = m.git.CountCommits(ctx, dir, "HEAD.."+tracking); err != nil {
		return fail(err)
	}
	if res.Ahead, err = m.git.CountCommits(ctx, dir, tracking+"..HEAD"); err != nil {
		return fail(err)
	}

	if res.Behind > 0 {
		commits, err := m.git.Log(ctx, dir, "HEAD.."+tracking, m.settings.MaxCommits)
		if err != nil {
			return fail(err)
		}
		res.Commits = commits
		res.BreakingChanges = DetectBreaking(commits)

		changed, err := m.git.ChangedFiles(ctx, dir, "HEAD..."+tracking)
		if err != nil {
			return fail(err)
		}
		res.DependencyChanges = MatchDependencyFiles(changed, m.settings.DependencyFiles)
		res.HighImpactChanges = MatchHighImpact(changed, m.settings.HighImpactPaths)
		res.InstallCommand = InstallCommand(res.DependencyChanges)
	}

	log.WithField("behind", res.Behind).WithField("ahead", res.Ahead).
		Debugf("Compared %s with %s", branch, tracking)
	return res
}

// RunIfDue runs only when ShouldRun allows it or force is set. ran is
// false when the throttle suppressed the run.
func (m *Monitor) RunIfDue(ctx context.Context, force bool) (res *Result, ran bool, err error) {
	if !force && !m.ShouldRun(ctx) {
		return nil, false, nil
	}
	res, err = m.Run(ctx)
	return res, true, err
}

// DetectBreaking returns the commits whose subjects match a breaking rule.
func DetectBreaking(commits []git.Commit) []BreakingCommit {
	out := []BreakingCommit{}
	for _, c := range commits {
		if rule, ok := conventional.BreakingReason(c.Subject); ok {
			out = append(out, BreakingCommit{Commit: c, Rule: rule})
		}
	}
	return out
}

// MatchDependencyFiles returns the changed paths whose base name is a
// known manifest or lockfile.
func MatchDependencyFiles(changed, manifests []string) []string {
	names := make(map[string]bool, len(manifests))
	for _, n := range manifests {
		names[n] = true
	}
	out := []string{}
	for _, p := range changed {
		if names[path.Base(p)] {
			out = append(out, p)
		}
	}
	return out
}

// MatchHighImpact returns the changed paths that start with, or contain as
// a path segment, one of the high-impact prefixes.
func MatchHighImpact(changed, prefixes []string) []string {
	out := []string{}
	for _, p := range changed {
		for _, prefix := range prefixes {
			if strings.HasPrefix(p, prefix) || strings.Contains(p, "/"+prefix) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
