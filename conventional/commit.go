// Package conventional parses conventional-commit subjects and flags the
// ones that announce breaking changes.
package conventional

import (
	"fmt"
	"regexp"
	"strings"
)

// Commit represents a parsed conventional commit message.
type Commit struct {
	Type       string
	Scope      string
	Subject    string
	Body       string
	IsBreaking bool
}

// Regex to parse a conventional commit message.
// It captures: 1: type, 2: scope (optional), 3: breaking change indicator (!), 4: subject
var commitRegex = regexp.MustCompile(`^(\w+)(?:\(([^)]+)\))?(!?):\s(.*)$`)

// Parse parses a raw git commit message string into a Commit struct.
func Parse(message string) (*Commit, error) {
	lines := strings.SplitN(strings.TrimSpace(message), "\n", 2)
	header := lines[0]

	matches := commitRegex.FindStringSubmatch(header)
	if len(matches) < 5 {
		return nil, fmt.Errorf("invalid commit message format: %s", header)
	}

	commit := &Commit{
		Type:       strings.ToLower(matches[1]),
		Scope:      matches[2],
		IsBreaking: matches[3] == "!",
		Subject:    matches[4],
	}

	if len(lines) > 1 {
		body := strings.TrimSpace(lines[1])
		if strings.Contains(body, "BREAKING CHANGE:") || strings.Contains(body, "BREAKING-CHANGE:") {
			commit.IsBreaking = true
		}
		commit.Body = body
	}

	return commit, nil
}

// BreakingRule is one pattern that marks a commit subject as breaking.
type BreakingRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// BreakingRules are checked in order; the first match names the reason.
var BreakingRules = []BreakingRule{
	{Name: "conventional-marker", Pattern: regexp.MustCompile(`!:`)},
	{Name: "breaking", Pattern: regexp.MustCompile(`(?i)breaking`)},
	{Name: "major-change", Pattern: regexp.MustCompile(`(?i)major\s*change`)},
	{Name: "incompatible", Pattern: regexp.MustCompile(`(?i)incompatible`)},
}

// BreakingReason returns the name of the first rule message matches. A
// parsed conventional commit flagged breaking by its header or footer
// counts as the conventional marker.
func BreakingReason(message string) (string, bool) {
	if c, err := Parse(message); err == nil && c.IsBreaking {
		return BreakingRules[0].Name, true
	}
	for _, rule := range BreakingRules {
		if rule.Pattern.MatchString(message) {
			return rule.Name, true
		}
	}
	return "", false
}

// IsBreaking reports whether message announces a breaking change.
func IsBreaking(message string) bool {
	_, ok := BreakingReason(message)
	return ok
}
