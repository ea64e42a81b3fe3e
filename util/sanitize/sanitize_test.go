package sanitize

import "testing"

func TestForUserName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", "user"},
		{"simple login", "alice", "alice"},
		{"uppercase", "Alice", "alice"},
		{"dashes removed", "mary-jane", "maryjane"},
		{"dotted login", "j.doe", "j.doe"},
		{"domain account", `CORP\bob`, "corpbob"},
		{"only symbols", "@@@", "user"},
		{"leading dot", ".alice", "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForUserName(tt.input)
			if result != tt.expected {
				t.Errorf("ForUserName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestForNamespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"simple", "myapp", "myapp"},
		{"underscores and dots", "my_app.v2", "my-app-v2"},
		{"mixed case with spaces", "My Cool App", "my-cool-app"},
		{"special characters", "app@home#1", "app-home-1"},
		{"trailing separators", "--app--", "app"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForNamespace(tt.input)
			if result != tt.expected {
				t.Errorf("ForNamespace(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestForFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"component", "conflict", "conflict"},
		{"spaces", "sync monitor", "sync-monitor"},
		{"symbols dropped", "hooks/track!", "hookstrack"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ForFilename(tt.input)
			if result != tt.expected {
				t.Errorf("ForFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
