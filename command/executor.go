package command

import (
	"context"
	"os"
	"os/exec"
)

// DefaultEnv is appended to the environment of every command a SafeBuilder
// runs. Hooks run git alongside the agent's own git calls, so status must
// not take the index lock, and nothing may wait on a credential prompt.
// LC_ALL keeps stderr in English for error classification.
var DefaultEnv = []string{
	"GIT_OPTIONAL_LOCKS=0",
	"GIT_TERMINAL_PROMPT=0",
	"LC_ALL=C",
}

// Executor creates exec.Cmd instances. Tests substitute one to control the
// environment or PATH.
type Executor interface {
	CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd
}

// RealExecutor runs commands with the process environment plus Env.
type RealExecutor struct {
	Env []string
}

// CommandContext creates a context-aware exec.Cmd.
func (e *RealExecutor) CommandContext(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	return cmd
}
