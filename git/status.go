package git

import (
	"context"
	"strconv"
	"strings"
)

// FileStatus is the working tree state of one path.
type FileStatus struct {
	Path       string `json:"path"`
	Staged     bool   `json:"staged"`
	Unstaged   bool   `json:"unstaged"`
	Untracked  bool   `json:"untracked"`
	Conflicted bool   `json:"conflicted"`
}

// HasChanges reports uncommitted changes to a tracked file. Untracked files
// are not counted.
func (f *FileStatus) HasChanges() bool {
	return f != nil && (f.Staged || f.Unstaged || f.Conflicted)
}

// StatusInfo contains git status information parsed from porcelain v2 output
type StatusInfo struct {
	// Branch is the current branch name
	Branch string `json:"branch"`

	// Upstream is the tracking branch, empty if none
	Upstream string `json:"upstream,omitempty"`

	// AheadCount is the number of commits ahead of the upstream branch
	AheadCount int `json:"ahead_count"`

	// BehindCount is the number of commits behind the upstream branch
	BehindCount int `json:"behind_count"`

	// Files holds one entry per changed, untracked or unmerged path
	Files []FileStatus `json:"files"`
}

// IsDirty indicates if there are any uncommitted changes
func (s *StatusInfo) IsDirty() bool {
	return len(s.Files) > 0
}

// GetStatus returns git status information for the repository at the given path
func GetStatus(path string) (*StatusInfo, error) {
	r := NewCLIRepository()
	out, err := r.run(context.Background(), path, "status", "--porcelain=v2", "--branch")
	if err != nil {
		return nil, err
	}
	return ParseStatus(out), nil
}

// ParseStatus parses `git status --porcelain=v2 [--branch]` output.
func ParseStatus(output string) *StatusInfo {
	status := &StatusInfo{}

	for _, line := range strings.Split(output, "\n") {
		if line == "" {
			continue
		}

		// Parse header lines (start with '#')
		if strings.HasPrefix(line, "# ") {
			parts := strings.Fields(line)
			if len(parts) < 3 {
				continue
			}
			switch parts[1] {
			case "branch.head":
				status.Branch = parts[2]
			case "branch.upstream":
				status.Upstream = parts[2]
			case "branch.ab":
				// format is +<ahead> -<behind>
				status.AheadCount, _ = strconv.Atoi(strings.TrimPrefix(parts[2], "+"))
				if len(parts) > 3 {
					status.BehindCount, _ = strconv.Atoi(strings.TrimPrefix(parts[3], "-"))
				}
			}
			continue
		}

		switch line[0] {
		case '?': // Untracked
			status.Files = append(status.Files, FileStatus{
				Path:      unquote(strings.TrimPrefix(line, "? ")),
				Untracked: true,
			})
		case '1': // 1 XY sub mH mI mW hH hI path
			parts := strings.SplitN(line, " ", 9)
			if len(parts) < 9 {
				continue
			}
			status.Files = append(status.Files, changedEntry(parts[1], parts[8]))
		case '2': // 2 XY sub mH mI mW hH hI Xscore path<TAB>origPath
			parts := strings.SplitN(line, " ", 10)
			if len(parts) < 10 {
				continue
			}
			path, _, _ := strings.Cut(parts[9], "\t")
			status.Files = append(status.Files, changedEntry(parts[1], path))
		case 'u': // u XY sub m1 m2 m3 mW h1 h2 h3 path
			parts := strings.SplitN(line, " ", 11)
			if len(parts) < 11 {
				continue
			}
			status.Files = append(status.Files, FileStatus{
				Path:       unquote(parts[10]),
				Staged:     true,
				Unstaged:   true,
				Conflicted: true,
			})
		}
	}

	return status
}

func changedEntry(xy, path string) FileStatus {
	fs := FileStatus{Path: unquote(path)}
	if len(xy) >= 2 {
		// '.' means unchanged in that column
		fs.Staged = xy[0] != '.'
		fs.Unstaged = xy[1] != '.'
	}
	return fs
}

func unquote(path string) string {
	if len(path) >= 2 && path[0] == '"' {
		if s, err := strconv.Unquote(path); err == nil {
			return s
		}
	}
	return path
}
