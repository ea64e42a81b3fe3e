package errors

import (
	"fmt"
	"os/exec"
	"strings"
)

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *CoordError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *CoordError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// RecordNotFound reports a missing registry record.
func RecordNotFound(bucket, key string) *CoordError {
	return New(ErrCodeRecordNotFound, fmt.Sprintf("%s record '%s' not found", bucket, key)).
		WithDetail("bucket", bucket).
		WithDetail("key", key)
}

// RecordCorrupt reports a registry record that exists but cannot be decoded.
func RecordCorrupt(bucket, key string, cause error) *CoordError {
	return Wrap(cause, ErrCodeRecordCorrupt, fmt.Sprintf("%s record '%s' is corrupt", bucket, key)).
		WithDetail("bucket", bucket).
		WithDetail("key", key)
}

// InvalidKey reports a key that cannot be used as a registry entry name.
func InvalidKey(key string) *CoordError {
	return New(ErrCodeInvalidKey, fmt.Sprintf("invalid registry key: %q", key)).
		WithDetail("key", key)
}

// SessionExists reports an attempt to register over a live session.
func SessionExists(sessionID string) *CoordError {
	return New(ErrCodeSessionExists, fmt.Sprintf("session '%s' is already active", sessionID)).
		WithDetail("sessionId", sessionID)
}

// SessionNotFound reports a session id with no record.
func SessionNotFound(sessionID string) *CoordError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("session '%s' not found", sessionID)).
		WithDetail("sessionId", sessionID)
}

// CommandFailed creates a command execution failure error
func CommandFailed(cmd string, err error) *CoordError {
	coordErr := Wrap(err, ErrCodeCommandFailed, fmt.Sprintf("command failed: %s", cmd)).
		WithDetail("command", cmd)

	// Extract exit code if available
	if exitErr, ok := err.(*exec.ExitError); ok {
		coordErr = coordErr.WithDetail("exitCode", exitErr.ExitCode())
	}

	return coordErr
}

// GitFailed wraps a failed git invocation, keeping its stderr.
func GitFailed(args []string, stderr string, err error) *CoordError {
	coordErr := Wrap(err, ErrCodeGitFailed, fmt.Sprintf("git %s failed", strings.Join(args, " "))).
		WithDetail("args", args)
	if s := strings.TrimSpace(stderr); s != "" {
		coordErr = coordErr.WithDetail("stderr", s)
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		coordErr = coordErr.WithDetail("exitCode", exitErr.ExitCode())
	}
	return coordErr
}

// NotARepository reports a directory outside any git work tree.
func NotARepository(path string) *CoordError {
	return New(ErrCodeNotARepository, fmt.Sprintf("not a git repository: %s", path)).
		WithDetail("path", path)
}
