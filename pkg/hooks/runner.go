package hooks

import (
	"context"
	"fmt"
	"io"
	"runtime/debug"
	"sort"

	"github.com/grovetools/coord/logging"
	"github.com/grovetools/coord/pkg/profiling"
	"github.com/grovetools/coord/pkg/project"
	"github.com/sirupsen/logrus"
)

// Env is what a handler works with.
type Env struct {
	Project *project.Project
	Payload *Payload
	Stdout  io.Writer
	Stderr  io.Writer
}

// Handler performs one hook. The returned code is used only when err is
// nil.
type Handler func(ctx context.Context, env *Env) (int, error)

// Hook is a named runner bound to a host event.
type Hook struct {
	Name   string
	Event  string
	Short  string
	Handle Handler
}

var known = map[string]Hook{}

func register(h Hook) {
	known[h.Name] = h
}

func init() {
	register(Hook{
		Name:   "conflict-check",
		Event:  "PreToolUse",
		Short:  "Check an Edit/Write for conflicts before it runs",
		Handle: ConflictCheck,
	})
	register(Hook{
		Name:   "track",
		Event:  "PostToolUse",
		Short:  "Record the tool call and any file it touched",
		Handle: Track,
	})
	register(Hook{
		Name:   "sync-check",
		Event:  "UserPromptSubmit",
		Short:  "Report remote changes, at most once per sync TTL",
		Handle: SyncCheck,
	})
	register(Hook{
		Name:   "session-start",
		Event:  "SessionStart",
		Short:  "Register the session",
		Handle: SessionStart,
	})
	register(Hook{
		Name:   "session-end",
		Event:  "SessionEnd",
		Short:  "End the session and withdraw its work-in-progress record",
		Handle: SessionEnd,
	})
}

// Lookup returns the hook called name.
func Lookup(name string) (Hook, bool) {
	h, ok := known[name]
	return h, ok
}

// All returns every hook sorted by name.
func All() []Hook {
	hooks := make([]Hook, 0, len(known))
	for _, h := range known {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Name < hooks[j].Name })
	return hooks
}

// Runner executes hooks against the process's stdio.
type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Open builds the project for a payload. Defaults to project.Open.
	Open   func(ctx context.Context, opts project.Options) (*project.Project, error)
	Logger *logrus.Entry
}

// NewRunner returns a runner over the given streams.
func NewRunner(stdin io.Reader, stdout, stderr io.Writer) *Runner {
	return &Runner{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
		Open:   project.Open,
		Logger: logging.NewLogger("hooks"),
	}
}

// Run executes the named hook and returns the process exit code. Every
// failure, including a panic, is logged and yields 0.
func (r *Runner) Run(ctx context.Context, name string) (code int) {
	log := r.Logger.WithField("hook", name)
	defer profiling.Start("hook." + name).Stop()
	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("Hook panicked: %v\n%s", rec, debug.Stack())
			code = 0
		}
	}()

	h, ok := Lookup(name)
	if !ok {
		log.Warn("Unknown hook")
		return 0
	}

	payload, err := ReadPayload(r.Stdin)
	if err != nil {
		log.WithError(err).Warn("Ignoring unreadable payload")
		return 0
	}

	p, err := r.Open(ctx, project.Options{
		Dir:       payload.Cwd,
		SessionID: payload.SessionID,
		Component: "hook-" + name,
	})
	if err != nil {
		log.WithError(err).Warn("Coordination unavailable")
		return 0
	}
	defer func() {
		if err := p.Close(); err != nil {
			log.WithError(err).Debug("Failed to close store")
		}
	}()

	code, err = h.Handle(ctx, &Env{
		Project: p,
		Payload: payload,
		Stdout:  r.Stdout,
		Stderr:  r.Stderr,
	})
	if err != nil {
		p.Context.Logger.WithError(err).WithField("hook", name).Warn("Hook failed")
		return 0
	}
	return code
}

func printf(w io.Writer, format string, args ...interface{}) {
	if w != nil {
		fmt.Fprintf(w, format, args...)
	}
}
