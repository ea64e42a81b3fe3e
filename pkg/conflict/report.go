package conflict

import (
	"fmt"
	"strings"
	"time"

	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/sessions"
	"github.com/grovetools/coord/pkg/syncmon"
)

// Severity of a report.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ExitBlock is the hook exit code that tells the host to refuse the edit.
const ExitBlock = 2

// maxRemoteCommitsShown bounds the commit list in the text report.
const maxRemoteCommitsShown = 3

// LocalChanges describes uncommitted work on the file in this checkout.
type LocalChanges struct {
	Staged     bool `json:"staged"`
	Unstaged   bool `json:"unstaged"`
	Conflicted bool `json:"conflicted,omitempty"`
}

// Report is the fused result of a conflict check.
type Report struct {
	Path          string              `json:"path"`
	Operation     Operation           `json:"operation"`
	Mode          Mode                `json:"mode"`
	Severity      Severity            `json:"severity"`
	WipConflicts  []models.Conflict   `json:"wipConflicts,omitempty"`
	RemoteChanges *syncmon.Divergence `json:"remoteChanges,omitempty"`
	LocalChanges  *LocalChanges       `json:"localChanges,omitempty"`
	GeneratedAt   time.Time           `json:"generatedAt"`
}

// Blocks reports whether the edit must be refused.
func (r *Report) Blocks() bool {
	return r != nil && r.Mode == ModeBlock && r.Severity == SeverityCritical
}

// ExitCode is the process exit code for the hook. Only a blocking report
// exits non-zero.
func (r *Report) ExitCode() int {
	if r.Blocks() {
		return ExitBlock
	}
	return 0
}

// Text renders the report for a human or for the host's stderr channel.
func (r *Report) Text() string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	if r.Severity == SeverityCritical {
		b.WriteString("CRITICAL CONFLICT\n")
	} else {
		b.WriteString("Potential conflicts detected\n")
	}
	fmt.Fprintf(&b, "File: %s\n", r.Path)

	if len(r.WipConflicts) > 0 {
		b.WriteString("\nACTIVE CONFLICT: another session is editing this file\n")
		for _, c := range r.WipConflicts {
			age := sessions.FormatAge(r.GeneratedAt.Sub(c.LastAccess))
			fmt.Fprintf(&b, "  - %s@%s (%d accesses, last %s ago)\n", c.Developer, c.Hostname, c.AccessCount, age)
		}
	}

	if r.RemoteChanges != nil {
		fmt.Fprintf(&b, "\nREMOTE CHANGES: %s has commits touching this file\n", r.RemoteChanges.TrackingBranch)
		commits := r.RemoteChanges.Commits
		shown := commits
		if len(shown) > maxRemoteCommitsShown {
			shown = shown[:maxRemoteCommitsShown]
		}
		for _, c := range shown {
			fmt.Fprintf(&b, "  - %s\n", c)
		}
		if extra := len(commits) - len(shown); extra > 0 {
			fmt.Fprintf(&b, "  ... and %d more\n", extra)
		}
	}

	if lc := r.LocalChanges; lc != nil {
		var kinds []string
		if lc.Staged {
			kinds = append(kinds, "staged")
		}
		if lc.Unstaged {
			kinds = append(kinds, "unstaged")
		}
		if lc.Conflicted {
			kinds = append(kinds, "unmerged")
		}
		fmt.Fprintf(&b, "\nLOCAL CHANGES: %s\n", strings.Join(kinds, ", "))
	}

	b.WriteString("\nRecommended actions:\n")
	if len(r.WipConflicts) > 0 {
		b.WriteString("  - Coordinate with the other developer before editing\n")
	}
	if r.RemoteChanges != nil {
		b.WriteString("  - Run 'git pull' to pick up remote changes first\n")
	}
	if r.LocalChanges != nil {
		b.WriteString("  - Commit or stash your local changes\n")
	}
	if r.Blocks() {
		fmt.Fprintf(&b, "\nEdit blocked. Set CONFLICT_CHECK_MODE=%s to proceed anyway.\n", ModeWarn)
	}
	return b.String()
}
