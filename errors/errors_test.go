package errors

import (
	"fmt"
	"os/exec"
	"testing"
)

func TestCoordError(t *testing.T) {
	// Test basic error creation
	err := New(ErrCodeSessionNotFound, "session not found")
	if err.Code != ErrCodeSessionNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeSessionNotFound, err.Code)
	}

	// Test error wrapping
	cause := fmt.Errorf("underlying error")
	wrapped := Wrap(cause, ErrCodeCommandFailed, "command failed")

	if wrapped.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}

	// Test Is function
	if !Is(wrapped, ErrCodeCommandFailed) {
		t.Error("Is should return true for matching code")
	}

	if Is(wrapped, ErrCodeSessionNotFound) {
		t.Error("Is should return false for non-matching code")
	}

	// Test WithDetail
	detailed := err.WithDetail("sessionId", "alice-1").WithDetail("count", 2)
	if detailed.Details["sessionId"] != "alice-1" {
		t.Error("WithDetail should add details")
	}
}

func TestIsThroughFmtWrap(t *testing.T) {
	inner := RecordCorrupt("wip", "alice-1", fmt.Errorf("unexpected end of JSON input"))
	outer := fmt.Errorf("scanning: %w", inner)

	if !Is(outer, ErrCodeRecordCorrupt) {
		t.Error("Is should find the code through fmt.Errorf wrapping")
	}
	if GetCode(outer) != ErrCodeRecordCorrupt {
		t.Errorf("expected %s, got %s", ErrCodeRecordCorrupt, GetCode(outer))
	}
	if GetCode(fmt.Errorf("plain")) != "" {
		t.Error("GetCode should be empty for plain errors")
	}
	if Is(nil, ErrCodeInternal) {
		t.Error("Is(nil) should be false")
	}
}

func TestErrorConstructors(t *testing.T) {
	err := SessionExists("alice-1")
	if err.Code != ErrCodeSessionExists {
		t.Errorf("expected code %s, got %s", ErrCodeSessionExists, err.Code)
	}
	if err.Details["sessionId"] != "alice-1" {
		t.Error("SessionExists should include sessionId detail")
	}

	err = RecordNotFound("sessions", "bob-1")
	if err.Details["bucket"] != "sessions" || err.Details["key"] != "bob-1" {
		t.Error("RecordNotFound should include bucket and key")
	}

	err = GitFailed([]string{"rev-parse", "HEAD"}, "fatal: not a git repository\n", &exec.ExitError{})
	if err.Code != ErrCodeGitFailed {
		t.Errorf("expected code %s, got %s", ErrCodeGitFailed, err.Code)
	}
	if err.Details["stderr"] != "fatal: not a git repository" {
		t.Errorf("unexpected stderr detail: %v", err.Details["stderr"])
	}
}
