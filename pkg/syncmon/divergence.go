package syncmon

import (
	"context"

	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/git"
)

// Limits for per-file divergence.
const (
	DivergenceDiffBytes  = 500
	DivergenceMaxCommits = 5
)

// Divergence is the remote-side change to one file.
type Divergence struct {
	Path           string       `json:"path"`
	TrackingBranch string       `json:"trackingBranch"`
	Commits        []git.Commit `json:"commits"`
	Diff           string       `json:"diff"`
}

// FileDivergence reports remote commits that touch path and are not yet in
// HEAD, with an excerpt of the diff. It compares against the refs from the
// last fetch and never fetches. The result is nil when the remote has not
// changed path. Errors mean the signal is unavailable.
func (m *Monitor) FileDivergence(ctx context.Context, path string) (*Divergence, error) {
	dir := m.c.RootDir
	key, ok := m.c.RelPath(path)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "path is outside the project").WithDetail("path", path)
	}

	if !m.git.IsGitRepo(ctx, dir) {
		return nil, errors.NotARepository(dir)
	}
	branch, err := m.git.CurrentBranch(ctx, dir)
	if err != nil {
		return nil, err
	}
	if branch == "HEAD" || branch == "" {
		return nil, errors.New(errors.ErrCodeNoTrackingBranch, "detached HEAD has no tracking branch")
	}
	tracking, err := m.git.TrackingBranch(ctx, dir, branch, m.settings.DefaultRemote)
	if err != nil {
		return nil, err
	}
	if !m.git.RefExists(ctx, dir, tracking) {
		return nil, errors.New(errors.ErrCodeNoTrackingBranch, "tracking branch does not exist").
			WithDetail("trackingBranch", tracking)
	}

	commits, err := m.git.Log(ctx, dir, "HEAD.."+tracking, DivergenceMaxCommits, key)
	if err != nil {
		return nil, err
	}
	if len(commits) == 0 {
		return nil, nil
	}

	diff, err := m.git.DiffExcerpt(ctx, dir, "HEAD", tracking, key, DivergenceDiffBytes)
	if err != nil {
		m.c.Logger.WithError(err).Debugf("Diff excerpt unavailable for %s", key)
	}

	return &Divergence{
		Path:           key,
		TrackingBranch: tracking,
		Commits:        commits,
		Diff:           diff,
	}, nil
}
