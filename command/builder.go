package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultTimeout is the default command execution timeout
	DefaultTimeout = 30 * time.Second

	// MaxTimeout is the maximum allowed timeout
	MaxTimeout = 5 * time.Minute
)

var (
	gitRefPattern    = regexp.MustCompile(`^[a-zA-Z0-9/_.@{}^~-]+$`)
	remotePattern    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
	sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

// SafeBuilder provides secure command execution with validation
type SafeBuilder struct {
	defaultTimeout time.Duration
	validators     map[string]func(string) error
	executor       Executor
}

// NewSafeBuilder creates a SafeBuilder that runs commands with DefaultEnv
func NewSafeBuilder() *SafeBuilder {
	return NewSafeBuilderWithExecutor(&RealExecutor{Env: DefaultEnv})
}

// NewSafeBuilderWithExecutor creates a new SafeBuilder with a custom Executor
func NewSafeBuilderWithExecutor(exec Executor) *SafeBuilder {
	return &SafeBuilder{
		defaultTimeout: DefaultTimeout,
		validators:     makeDefaultValidators(),
		executor:       exec,
	}
}

// makeDefaultValidators returns the default set of validators
func makeDefaultValidators() map[string]func(string) error {
	return map[string]func(string) error{
		"fileName":   validateFileName,
		"gitRef":     validateGitRef,
		"remoteName": validateRemoteName,
		"sessionID":  validateSessionID,
	}
}

// validateFileName ensures project-relative paths are safe to pass after "--"
func validateFileName(path string) error {
	if path == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	for _, seg := range strings.Split(strings.ReplaceAll(path, "\\", "/"), "/") {
		if seg == ".." {
			return fmt.Errorf("file path cannot contain '..'")
		}
	}

	if strings.ContainsAny(path, ";|&$`\n") {
		return fmt.Errorf("file path contains invalid characters")
	}

	return nil
}

// validateGitRef ensures git references are safe
func validateGitRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("git ref cannot be empty")
	}
	if strings.HasPrefix(ref, "-") {
		return fmt.Errorf("git ref cannot start with '-': %s", ref)
	}
	if !gitRefPattern.MatchString(ref) {
		return fmt.Errorf("invalid git ref: %s", ref)
	}

	return nil
}

// validateRemoteName ensures remote names are safe
func validateRemoteName(name string) error {
	if name == "" {
		return fmt.Errorf("remote name cannot be empty")
	}
	if !remotePattern.MatchString(name) {
		return fmt.Errorf("invalid remote name: %s", name)
	}
	return nil
}

// ValidateSessionID reports whether id is usable as a registry key.
func ValidateSessionID(id string) error {
	return validateSessionID(id)
}

// validateSessionID ensures session ids are usable as registry keys
func validateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id cannot be empty")
	}
	if len(id) > 128 {
		return fmt.Errorf("session id too long: %s (max 128 characters)", id)
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("invalid session id: %s", id)
	}
	return nil
}

// Command represents a safe command configuration
type Command struct {
	ctx      context.Context
	cancel   context.CancelFunc
	name     string
	args     []string
	dir      string
	timeout  time.Duration
	executor Executor
}

// Build creates a new command with validation
func (sb *SafeBuilder) Build(ctx context.Context, name string, args ...string) (*Command, error) {
	if name == "" {
		return nil, fmt.Errorf("command name cannot be empty")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, sb.defaultTimeout)

	return &Command{
		ctx:      timeoutCtx,
		cancel:   cancel,
		name:     name,
		args:     args,
		timeout:  sb.defaultTimeout,
		executor: sb.executor,
	}, nil
}

// WithTimeout sets a custom timeout for the command
func (c *Command) WithTimeout(timeout time.Duration) *Command {
	if timeout > MaxTimeout {
		timeout = MaxTimeout
	}

	if c.cancel != nil {
		c.cancel()
	}
	c.ctx, c.cancel = context.WithTimeout(context.Background(), timeout)
	c.timeout = timeout
	return c
}

// InDir sets the working directory the command runs in.
func (c *Command) InDir(dir string) *Command {
	c.dir = dir
	return c
}

// Validate validates specific arguments
func (sb *SafeBuilder) Validate(argType string, value string) error {
	validator, exists := sb.validators[argType]
	if !exists {
		return fmt.Errorf("no validator for argument type: %s", argType)
	}

	return validator(value)
}

// Exec creates and returns an exec.Cmd. The caller owns the command's
// lifetime; use Run when the output is all that is needed.
func (c *Command) Exec() *exec.Cmd {
	cmd := c.executor.CommandContext(c.ctx, c.name, c.args...) //nolint:gosec // SafeBuilder provides validation
	if c.dir != "" {
		cmd.Dir = c.dir
	}
	return cmd
}

// Run executes the command to completion and returns stdout and stderr.
func (c *Command) Run() (stdout, stderr string, err error) {
	defer c.cancel()

	cmd := c.Exec()
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err = cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// String renders the command line for logs and error details.
func (c *Command) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}
