package syncmon

import (
	"fmt"
	"strings"
	"testing"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/git"
	"github.com/stretchr/testify/assert"
)

func checked() *Result {
	return &Result{
		Status:            StatusChecked,
		Branch:            "main",
		TrackingBranch:    "origin/main",
		Commits:           []git.Commit{},
		BreakingChanges:   []BreakingCommit{},
		DependencyChanges: []string{},
		HighImpactChanges: []string{},
	}
}

func TestBuildSyncReportNothingToReport(t *testing.T) {
	assert.Empty(t, BuildSyncReport(nil))
	assert.Empty(t, BuildSyncReport(checked()))

	r := checked()
	r.Ahead = 4
	r.HighImpactChanges = []string{"config/app.yml"}
	assert.Empty(t, BuildSyncReport(r), "ahead and high-impact alone stay silent")

	r = checked()
	r.Status = StatusSkipped
	r.Behind = 3
	assert.Empty(t, BuildSyncReport(r))
}

func TestBuildSyncReportSections(t *testing.T) {
	r := checked()
	r.Behind = 7
	r.Ahead = 1
	for i := 0; i < 7; i++ {
		r.Commits = append(r.Commits, git.Commit{Hash: fmt.Sprintf("abc%d", i), Subject: fmt.Sprintf("feat: change %d", i)})
	}
	r.BreakingChanges = []BreakingCommit{{Commit: git.Commit{Hash: "abc9", Subject: "feat!: drop v1"}, Rule: "conventional-marker"}}
	r.DependencyChanges = []string{"pubspec.yaml"}
	r.InstallCommand = "flutter pub get"
	for i := 0; i < 8; i++ {
		r.HighImpactChanges = append(r.HighImpactChanges, fmt.Sprintf("lib/core/f%d.dart", i))
	}

	report := BuildSyncReport(r)

	order := []string{
		"Sync Status:",
		"↓ 7 commit(s) behind remote",
		"↑ 1 commit(s) ahead of remote",
		"BREAKING CHANGES on remote:",
		"abc9: feat!: drop v1",
		"Dependency files changed:",
		"pubspec.yaml",
		"Core/shared code changed:",
		"... and 3 more",
		"Recent remote commits:",
		"Recommended actions:",
		"1. git pull origin main",
		"2. flutter pub get",
		"3. Review the remote changes",
	}
	pos := 0
	for _, want := range order {
		idx := strings.Index(report[pos:], want)
		if !assert.GreaterOrEqual(t, idx, 0, "missing or out of order: %q\n%s", want, report) {
			return
		}
		pos += idx + len(want)
	}
	assert.Contains(t, report, "abc4: feat: change 4")
	assert.NotContains(t, report, "abc5:")
	assert.NotContains(t, report, "f5.dart")
}

func TestInstallCommand(t *testing.T) {
	tests := []struct {
		changed []string
		want    string
	}{
		{nil, ""},
		{[]string{"pubspec.lock"}, "flutter pub get"},
		{[]string{"package.json", "pubspec.yaml"}, "flutter pub get"},
		{[]string{"web/package-lock.json"}, "npm install"},
		{[]string{"yarn.lock"}, "yarn install"},
		{[]string{"pnpm-lock.yaml", "package.json"}, "pnpm install"},
		{[]string{"requirements.txt"}, "pip install -r requirements.txt"},
		{[]string{"Pipfile.lock"}, "pipenv install"},
		{[]string{"Gemfile.lock"}, "bundle install"},
		{[]string{"go.sum"}, "go mod download"},
		{[]string{"Cargo.lock"}, "cargo build"},
		{[]string{"README.md"}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InstallCommand(tt.changed), "%v", tt.changed)
	}
}

func TestMatchers(t *testing.T) {
	changed := []string{
		"package.json",
		"apps/web/package.json",
		"src/main.go",
		"lib/core/a.dart",
		"apps/mobile/lib/core/b.dart",
		"configuration.md",
		".env.example",
	}

	assert.Equal(t, []string{"package.json", "apps/web/package.json"},
		MatchDependencyFiles(changed, config.DefaultDependencyFiles))
	assert.Equal(t, []string{"lib/core/a.dart", "apps/mobile/lib/core/b.dart", ".env.example"},
		MatchHighImpact(changed, config.DefaultHighImpactPaths))
}

func TestDetectBreaking(t *testing.T) {
	commits := []git.Commit{
		{Hash: "1", Subject: "fix: padding"},
		{Hash: "2", Subject: "chore: bump"},
		{Hash: "3", Subject: "feat!: remove legacy auth"},
	}
	got := DetectBreaking(commits)
	if assert.Len(t, got, 1) {
		assert.Equal(t, "3", got[0].Hash)
	}
}
