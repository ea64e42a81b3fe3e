package git

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/coord/testutil"
)

func TestRemoteOf(t *testing.T) {
	assert.Equal(t, "origin", RemoteOf("origin/main"))
	assert.Equal(t, "upstream", RemoteOf("upstream/feature/x"))
	assert.Equal(t, "", RemoteOf("main"))
}

type branchStub struct {
	RepositoryProvider
	branch string
	err    error
}

func (b branchStub) CurrentBranch(context.Context, string) (string, error) {
	return b.branch, b.err
}

func TestBranchOrUnknown(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "main", BranchOrUnknown(ctx, branchStub{branch: "main"}, "."))
	assert.Equal(t, "unknown", BranchOrUnknown(ctx, branchStub{}, "."))
	assert.Equal(t, "unknown", BranchOrUnknown(ctx, branchStub{err: errors.New("boom")}, "."))
}

func TestIsGitRepoAndRoot(t *testing.T) {
	testutil.RequireGit(t)

	plain := t.TempDir()
	assert.False(t, IsGitRepo(plain))
	_, err := GetGitRoot(plain)
	assert.Error(t, err)

	dir := t.TempDir()
	testutil.InitGitRepo(t, dir)
	sub := testutil.WriteFile(t, dir, "pkg/a/file.go", "package a\n")

	assert.True(t, IsGitRepo(dir))
	root, err := GetGitRoot(filepath.Dir(sub))
	require.NoError(t, err)
	assert.Equal(t, testutil.RunGitCommand(t, dir, "rev-parse", "--show-toplevel"), root)
}
