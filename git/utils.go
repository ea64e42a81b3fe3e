package git

import (
	"context"
	"strings"
)

// IsGitRepo checks if the given directory is inside a git repository
func IsGitRepo(dir string) bool {
	return NewCLIRepository().IsGitRepo(context.Background(), dir)
}

// GetGitRoot returns the root directory of the git repository
func GetGitRoot(dir string) (string, error) {
	return NewCLIRepository().GetGitRoot(context.Background(), dir)
}

// BranchOrUnknown returns the current branch of dir, or "unknown" when it
// cannot be determined.
func BranchOrUnknown(ctx context.Context, p RepositoryProvider, dir string) string {
	branch, err := p.CurrentBranch(ctx, dir)
	if err != nil || branch == "" {
		return "unknown"
	}
	return branch
}

// RemoteOf returns the remote component of a remote-tracking ref such as
// "origin/feature/x".
func RemoteOf(trackingBranch string) string {
	remote, _, found := strings.Cut(trackingBranch, "/")
	if !found {
		return ""
	}
	return remote
}
