package syncmon

import (
	"fmt"
	"path"
	"strings"
)

const reportListLimit = 5

// installRules map manifest base names to the command that installs them,
// in priority order.
var installRules = []struct {
	match   func(name string) bool
	command string
}{
	{func(n string) bool { return strings.HasPrefix(n, "pubspec.") }, "flutter pub get"},
	{func(n string) bool { return n == "pnpm-lock.yaml" }, "pnpm install"},
	{func(n string) bool { return n == "yarn.lock" }, "yarn install"},
	{func(n string) bool { return n == "package.json" || n == "package-lock.json" }, "npm install"},
	{func(n string) bool { return n == "requirements.txt" }, "pip install -r requirements.txt"},
	{func(n string) bool { return n == "Pipfile.lock" }, "pipenv install"},
	{func(n string) bool { return n == "Gemfile.lock" }, "bundle install"},
	{func(n string) bool { return n == "go.mod" || n == "go.sum" }, "go mod download"},
	{func(n string) bool { return n == "Cargo.lock" }, "cargo build"},
}

// InstallCommand returns the install command for the highest-priority
// manifest among changed, or "".
func InstallCommand(changed []string) string {
	for _, rule := range installRules {
		for _, p := range changed {
			if rule.match(path.Base(p)) {
				return rule.command
			}
		}
	}
	return ""
}

// BuildSyncReport renders r as labelled sections. It returns "" when the
// run was skipped or found nothing worth reporting: not behind, and no
// dependency or breaking changes.
func BuildSyncReport(r *Result) string {
	if r == nil || r.Skipped() {
		return ""
	}
	if r.Behind == 0 && len(r.DependencyChanges) == 0 && len(r.BreakingChanges) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[REMOTE-SYNC] Remote changes detected\n")
	fmt.Fprintf(&b, "  Branch: %s <- %s\n\n", r.Branch, r.TrackingBranch)

	if r.Behind > 0 || r.Ahead > 0 {
		b.WriteString("Sync Status:\n")
		if r.Behind > 0 {
			fmt.Fprintf(&b, "  ↓ %d commit(s) behind remote\n", r.Behind)
		}
		if r.Ahead > 0 {
			fmt.Fprintf(&b, "  ↑ %d commit(s) ahead of remote\n", r.Ahead)
		}
		b.WriteString("\n")
	}

	if len(r.BreakingChanges) > 0 {
		b.WriteString("BREAKING CHANGES on remote:\n")
		for _, c := range r.BreakingChanges {
			fmt.Fprintf(&b, "  - %s: %s\n", c.Hash, c.Subject)
		}
		b.WriteString("\n")
	}

	if len(r.DependencyChanges) > 0 {
		b.WriteString("Dependency files changed:\n")
		for _, f := range r.DependencyChanges {
			fmt.Fprintf(&b, "  - %s\n", f)
		}
		if r.InstallCommand != "" {
			fmt.Fprintf(&b, "  -> Run `%s` after pulling\n", r.InstallCommand)
		} else {
			b.WriteString("  -> Run the matching install command after pulling\n")
		}
		b.WriteString("\n")
	}

	if len(r.HighImpactChanges) > 0 {
		b.WriteString("Core/shared code changed:\n")
		for i, f := range r.HighImpactChanges {
			if i == reportListLimit {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.HighImpactChanges)-reportListLimit)
				break
			}
			fmt.Fprintf(&b, "  - %s\n", f)
		}
		b.WriteString("\n")
	}

	if len(r.Commits) > 0 && r.Behind > 0 {
		b.WriteString("Recent remote commits:\n")
		for i, c := range r.Commits {
			if i == reportListLimit {
				break
			}
			fmt.Fprintf(&b, "  - %s: %s\n", c.Hash, c.Subject)
		}
		b.WriteString("\n")
	}

	b.WriteString("Recommended actions:\n")
	step := 1
	if r.Behind > 0 {
		remote, branch := splitTracking(r.TrackingBranch, r.Branch)
		fmt.Fprintf(&b, "  %d. git pull %s %s\n", step, remote, branch)
		step++
	}
	if r.InstallCommand != "" {
		fmt.Fprintf(&b, "  %d. %s\n", step, r.InstallCommand)
		step++
	}
	fmt.Fprintf(&b, "  %d. Review the remote changes before editing\n", step)

	return b.String()
}

func splitTracking(tracking, fallbackBranch string) (remote, branch string) {
	remote, branch, ok := strings.Cut(tracking, "/")
	if !ok {
		return "origin", fallbackBranch
	}
	return remote, branch
}
