package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/grovetools/coord/command"
	coorderrors "github.com/grovetools/coord/errors"
)

// CLIRepository implements Provider using the git CLI
type CLIRepository struct {
	cmdBuilder *command.SafeBuilder
}

// Ensure it implements the interface
var _ Provider = (*CLIRepository)(nil)

// NewCLIRepository creates a new CLI repository provider
func NewCLIRepository() *CLIRepository {
	return &CLIRepository{
		cmdBuilder: command.NewSafeBuilder(),
	}
}

// NewCLIRepositoryWithBuilder creates a provider around a custom builder.
func NewCLIRepositoryWithBuilder(b *command.SafeBuilder) *CLIRepository {
	return &CLIRepository{cmdBuilder: b}
}

// run executes git in dir and returns trimmed stdout.
func (r *CLIRepository) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd, err := r.cmdBuilder.Build(ctx, "git", args...)
	if err != nil {
		return "", fmt.Errorf("failed to build command: %w", err)
	}
	stdout, stderr, err := cmd.InDir(dir).Run()
	if err != nil {
		if strings.Contains(stderr, "not a git repository") {
			return "", coorderrors.NotARepository(dir)
		}
		return "", coorderrors.GitFailed(args, stderr, err)
	}
	return strings.TrimRight(stdout, "\r\n"), nil
}

func (r *CLIRepository) validate(argType string, values ...string) error {
	for _, v := range values {
		if err := r.cmdBuilder.Validate(argType, v); err != nil {
			return coorderrors.Wrap(err, coorderrors.ErrCodeInvalidInput, "rejected git argument")
		}
	}
	return nil
}

// IsGitRepo checks if a directory is inside a git work tree
func (r *CLIRepository) IsGitRepo(ctx context.Context, dir string) bool {
	out, err := r.run(ctx, dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// GetGitRoot returns the root directory of the git repository
func (r *CLIRepository) GetGitRoot(ctx context.Context, dir string) (string, error) {
	out, err := r.run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("get git root: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// CurrentBranch returns the checked out branch, or "HEAD" when detached.
func (r *CLIRepository) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := r.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("get current branch: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// RefExists reports whether ref resolves to a commit.
func (r *CLIRepository) RefExists(ctx context.Context, dir, ref string) bool {
	if r.validate("gitRef", ref) != nil {
		return false
	}
	_, err := r.run(ctx, dir, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
	return err == nil
}

// TrackingBranch resolves the remote branch branch follows. It tries the
// configured upstream first, then branch.<name>.remote, then
// <defaultRemote>/<branch>. The returned ref is not guaranteed to exist.
func (r *CLIRepository) TrackingBranch(ctx context.Context, dir, branch, defaultRemote string) (string, error) {
	if err := r.validate("gitRef", branch); err != nil {
		return "", err
	}

	if out, err := r.run(ctx, dir, "rev-parse", "--abbrev-ref", "--symbolic-full-name", branch+"@{u}"); err == nil {
		if upstream := strings.TrimSpace(out); upstream != "" {
			return upstream, nil
		}
	}

	if out, err := r.run(ctx, dir, "config", "--get", "branch."+branch+".remote"); err == nil {
		if remote := strings.TrimSpace(out); remote != "" && remote != "." {
			return remote + "/" + branch, nil
		}
	}

	if defaultRemote == "" {
		defaultRemote = "origin"
	}
	return defaultRemote + "/" + branch, nil
}

// Fetch updates remote-tracking refs quietly.
func (r *CLIRepository) Fetch(ctx context.Context, dir, remote string) error {
	args := []string{"fetch", "--quiet"}
	if remote != "" {
		if err := r.validate("remoteName", remote); err != nil {
			return err
		}
		args = append(args, remote)
	}
	_, err := r.run(ctx, dir, args...)
	return err
}

// CountCommits runs `git rev-list --count` over rangeSpec.
func (r *CLIRepository) CountCommits(ctx context.Context, dir, rangeSpec string) (int, error) {
	if err := r.validate("gitRef", rangeSpec); err != nil {
		return 0, err
	}
	out, err := r.run(ctx, dir, "rev-list", "--count", rangeSpec)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("parse rev-list count %q: %w", out, err)
	}
	return n, nil
}

// Log returns up to max commits in rangeSpec, newest first, optionally
// restricted to paths.
func (r *CLIRepository) Log(ctx context.Context, dir, rangeSpec string, max int, paths ...string) ([]Commit, error) {
	if err := r.validate("gitRef", rangeSpec); err != nil {
		return nil, err
	}
	if err := r.validate("fileName", paths...); err != nil {
		return nil, err
	}
	args := []string{"log", "--no-decorate", "--format=%h %s"}
	if max > 0 {
		args = append(args, "-n", strconv.Itoa(max))
	}
	args = append(args, rangeSpec)
	if len(paths) > 0 {
		args = append(args, "--")
		args = append(args, paths...)
	}
	out, err := r.run(ctx, dir, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hash, subject, _ := strings.Cut(line, " ")
		commits = append(commits, Commit{Hash: hash, Subject: subject})
	}
	return commits
}

// ChangedFiles lists paths changed in rangeSpec, e.g. "HEAD...origin/main"
// for changes made on the remote side since the merge base.
func (r *CLIRepository) ChangedFiles(ctx context.Context, dir, rangeSpec string) ([]string, error) {
	if err := r.validate("gitRef", rangeSpec); err != nil {
		return nil, err
	}
	out, err := r.run(ctx, dir, "diff", "--name-only", rangeSpec)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// DiffExcerpt returns the diff of path between from and to, truncated to
// maxBytes. An empty string means the path is identical on both sides.
func (r *CLIRepository) DiffExcerpt(ctx context.Context, dir, from, to, path string, maxBytes int) (string, error) {
	if err := r.validate("gitRef", from, to); err != nil {
		return "", err
	}
	if err := r.validate("fileName", path); err != nil {
		return "", err
	}
	out, err := r.run(ctx, dir, "diff", from+".."+to, "--", path)
	if err != nil {
		return "", err
	}
	if maxBytes > 0 && len(out) > maxBytes {
		out = out[:maxBytes]
	}
	return out, nil
}

// FileStatus reports the working tree state of a single path.
func (r *CLIRepository) FileStatus(ctx context.Context, dir, path string) (*FileStatus, error) {
	if err := r.validate("fileName", path); err != nil {
		return nil, err
	}
	out, err := r.run(ctx, dir, "status", "--porcelain=v2", "--untracked-files=all", "--", path)
	if err != nil {
		return nil, err
	}
	status := ParseStatus(out)
	for i := range status.Files {
		if status.Files[i].Path == path {
			return &status.Files[i], nil
		}
	}
	return &FileStatus{Path: path}, nil
}

func splitLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
