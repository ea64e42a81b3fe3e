package sanitize

import (
	"regexp"
	"strings"
)

var (
	// userNameRegex matches characters not allowed in the user part of a session id
	userNameRegex = regexp.MustCompile(`[^a-z0-9_.]+`)

	// namespaceRegex matches characters not allowed in a registry namespace
	namespaceRegex = regexp.MustCompile(`[^a-z0-9-]+`)

	// multiDashRegex matches multiple consecutive dashes
	multiDashRegex = regexp.MustCompile(`-+`)
)

// ForUserName sanitizes a login name for use as the leading component of a
// session id. Dashes are removed because they separate id components.
// Returns "user" when nothing usable remains.
func ForUserName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = userNameRegex.ReplaceAllString(s, "")
	s = strings.Trim(s, "._")
	if len(s) > 32 {
		s = s[:32]
	}
	if s == "" {
		return "user"
	}
	return s
}

// ForNamespace sanitizes a string for use as a shared registry namespace
// (kebab-case, lowercase letters, digits and hyphens).
func ForNamespace(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("_", "-", " ", "-", ".", "-").Replace(s)
	s = namespaceRegex.ReplaceAllString(s, "-")
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 63 {
		s = strings.TrimRight(s[:63], "-")
	}
	return s
}

// ForFilename sanitizes a string for use in a filename (kebab-case).
func ForFilename(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "-")
	// Remove non-alphanumeric characters, except hyphens
	s = regexp.MustCompile(`[^a-z0-9-]+`).ReplaceAllString(s, "")
	// Collapse multiple hyphens
	s = multiDashRegex.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 { // Truncate long names
		s = s[:50]
	}
	return s
}
