package pathutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/coord/git"
)

// Expand expands home directory (~), environment variables, and ${BRANCH}
// in a path. It returns an absolute path.
func Expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}

	if strings.Contains(path, "${BRANCH}") || strings.Contains(path, "{{BRANCH}}") {
		branch := git.BranchOrUnknown(context.Background(), git.NewCLIRepository(), ".")
		path = strings.ReplaceAll(path, "${BRANCH}", branch)
		path = strings.ReplaceAll(path, "{{BRANCH}}", branch)
	}

	path = os.ExpandEnv(path)

	return filepath.Abs(path)
}
