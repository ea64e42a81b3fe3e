package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// NormalizeForLookup returns an absolute, symlink-resolved path, lowercased
// on case-insensitive platforms, for comparing project roots.
func NormalizeForLookup(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	canonicalPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// Not created yet.
		canonicalPath = absPath
	}

	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		return strings.ToLower(canonicalPath), nil
	}

	return canonicalPath, nil
}

// CanonicalPath returns the absolute, symlink-resolved path with the case
// the filesystem actually stores. Hook payloads may spell the project
// directory with different case than git reports on macOS; EvalSymlinks
// does not fix case, so each component is looked up.
func CanonicalPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	// First resolve symlinks
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// If symlink evaluation fails (e.g., path doesn't exist yet),
		// fall back to the absolute path.
		resolved = absPath
	}

	// On non-macOS/Windows, case is preserved by the filesystem
	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		return resolved, nil
	}

	// Handle root
	if resolved == "/" {
		return "/", nil
	}

	// Split into components, handling leading /
	var parts []string
	isAbsolute := strings.HasPrefix(resolved, "/")
	for _, p := range strings.Split(resolved, string(filepath.Separator)) {
		if p != "" {
			parts = append(parts, p)
		}
	}

	// Build up the canonical path component by component
	var result string
	if isAbsolute {
		result = "/"
	}

	for _, part := range parts {
		// Try to read the current directory and find the correct case
		entries, err := os.ReadDir(result)
		if err != nil {
			// Directory doesn't exist or can't be read, append as-is
			result = filepath.Join(result, part)
			continue
		}

		found := false
		for _, entry := range entries {
			if strings.EqualFold(entry.Name(), part) {
				result = filepath.Join(result, entry.Name())
				found = true
				break
			}
		}

		if !found {
			result = filepath.Join(result, part)
		}
	}

	return result, nil
}

// RelativeKey converts path into a slash-separated key relative to root.
// Relative inputs are taken as relative to root. ok is false when the path
// resolves outside root or to root itself.
func RelativeKey(root, path string) (key string, ok bool) {
	if path == "" {
		return "", false
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(filepath.Clean(root), path)
	if err != nil || !withinRoot(rel) {
		// Retry with symlinks resolved on both sides (e.g. /tmp vs /private/tmp).
		canonRoot, rootErr := CanonicalPath(root)
		canonPath, pathErr := CanonicalPath(path)
		if rootErr != nil || pathErr != nil {
			return "", false
		}
		rel, err = filepath.Rel(canonRoot, canonPath)
		if err != nil || !withinRoot(rel) {
			return "", false
		}
	}
	return filepath.ToSlash(rel), true
}

func withinRoot(rel string) bool {
	if rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

