package git

import "context"

// Commit is a single line of `git log` output.
type Commit struct {
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
}

// String renders the commit the way `git log --oneline` does.
func (c Commit) String() string {
	return c.Hash + " " + c.Subject
}

// RepositoryProvider defines the read-only git queries the coordination
// layer depends on. Every method runs against the work tree rooted at dir.
type RepositoryProvider interface {
	IsGitRepo(ctx context.Context, dir string) bool
	GetGitRoot(ctx context.Context, dir string) (string, error)
	CurrentBranch(ctx context.Context, dir string) (string, error)
	RefExists(ctx context.Context, dir, ref string) bool
}

// RemoteProvider defines the queries used to measure divergence from the
// tracking branch.
type RemoteProvider interface {
	TrackingBranch(ctx context.Context, dir, branch, defaultRemote string) (string, error)
	Fetch(ctx context.Context, dir, remote string) error
	CountCommits(ctx context.Context, dir, rangeSpec string) (int, error)
	Log(ctx context.Context, dir, rangeSpec string, max int, paths ...string) ([]Commit, error)
	ChangedFiles(ctx context.Context, dir, rangeSpec string) ([]string, error)
	DiffExcerpt(ctx context.Context, dir, from, to, path string, maxBytes int) (string, error)
}

// StatusProvider reports working tree state for individual paths.
type StatusProvider interface {
	FileStatus(ctx context.Context, dir, path string) (*FileStatus, error)
}

// Provider is the full set of git queries.
type Provider interface {
	RepositoryProvider
	RemoteProvider
	StatusProvider
}
