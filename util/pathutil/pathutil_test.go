package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelativeKey(t *testing.T) {
	root := t.TempDir()

	testCases := []struct {
		name string
		path string
		key  string
		ok   bool
	}{
		{"relative", "src/app.go", "src/app.go", true},
		{"absolute", filepath.Join(root, "src", "app.go"), "src/app.go", true},
		{"dot segments", filepath.Join(root, "src", "..", "go.mod"), "go.mod", true},
		{"root itself", root, "", false},
		{"escapes root", "../elsewhere/file.go", "", false},
		{"sibling with shared prefix", root + "-other/file.go", "", false},
		{"empty", "", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, ok := RelativeKey(root, tc.path)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.key, key)
		})
	}
}

func TestRelativeKeyThroughSymlink(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(real, "a.go"), []byte("package a\n"), 0644))

	key, ok := RelativeKey(real, filepath.Join(link, "a.go"))
	assert.True(t, ok)
	assert.Equal(t, "a.go", key)
}

func TestNormalizeForLookupResolvesSymlinks(t *testing.T) {
	real := t.TempDir()
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	a, err := NormalizeForLookup(real)
	require.NoError(t, err)
	b, err := NormalizeForLookup(link)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	missing, err := NormalizeForLookup(filepath.Join(real, "not-yet"))
	require.NoError(t, err)
	assert.Equal(t, "not-yet", filepath.Base(missing))
	assert.True(t, filepath.IsAbs(missing))
}

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("COORD_TEST_DIR", "logs")

	got, err := Expand("~/coord/$COORD_TEST_DIR")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "coord", "logs"), got)

	got, err = Expand("relative")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}
