package coord

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/coord/util/pathutil"
)

// EnsureLayout creates the registry directories and, when the registry
// lives inside the project, adds it to the project's .gitignore once.
func (c *Context) EnsureLayout() error {
	for _, sub := range []string{SessionsBucket, WipBucket, CacheBucket, LogsDir} {
		if err := os.MkdirAll(filepath.Join(c.RegistryDir, sub), 0755); err != nil {
			return fmt.Errorf("create registry directory %s: %w", sub, err)
		}
	}

	rel, ok := pathutil.RelativeKey(c.RootDir, c.RegistryDir)
	if !ok {
		return nil
	}
	return ensureIgnored(filepath.Join(c.RootDir, ".gitignore"), rel+"/")
}

// ensureIgnored appends entry to the gitignore at path unless an
// equivalent line is already present.
func ensureIgnored(path, entry string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read .gitignore: %w", err)
	}

	bare := strings.TrimSuffix(entry, "/")
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "/")
		if line == entry || line == bare {
			return nil
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open .gitignore: %w", err)
	}
	defer f.Close()

	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	if _, err := fmt.Fprintf(f, "%s%s\n", prefix, entry); err != nil {
		return fmt.Errorf("update .gitignore: %w", err)
	}
	return nil
}
