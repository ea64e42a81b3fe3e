package hooks

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/pkg/conflict"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/sessions"
	"github.com/grovetools/coord/pkg/syncmon"
)

// ConflictCheck runs before Edit, MultiEdit and Write. A blocking report
// goes to stderr with exit 2 so the host refuses the edit and shows the
// reason; any other report goes to stdout.
func ConflictCheck(ctx context.Context, env *Env) (int, error) {
	op, ok := conflict.OperationForTool(env.Payload.ToolName)
	if !ok {
		return 0, nil
	}
	path := env.Payload.TargetPath()
	if path == "" {
		return 0, nil
	}

	p := env.Project
	report := p.Conflicts.Check(ctx, path, op, p.Mode())
	if report == nil {
		return 0, nil
	}
	if report.Blocks() {
		printf(env.Stderr, "%s", report.Text())
		return report.ExitCode(), nil
	}
	printf(env.Stdout, "%s", report.Text())
	return 0, nil
}

// Track runs after every tool call. File edits are recorded in the
// session and its WIP record, and other sessions on the same file are
// reported. Other tools only bump the counters.
func Track(ctx context.Context, env *Env) (int, error) {
	p := env.Project
	tool := env.Payload.ToolName
	path := env.Payload.TargetPath()

	if !models.IsEditTool(tool) || path == "" {
		if tool == "" {
			return 0, nil
		}
		_, err := p.Sessions.RecordToolCall(ctx, tool)
		return 0, err
	}

	f, err := p.Sessions.TrackFileEdit(ctx, path, tool)
	if errors.Is(err, errors.ErrCodeInvalidInput) {
		p.Context.Logger.WithField("path", path).Debug("Not tracking path outside the project")
		_, err = p.Sessions.RecordToolCall(ctx, tool)
		return 0, err
	}
	if err != nil || f == nil {
		return 0, err
	}

	conflicts, err := p.WIP().CheckFileConflicts(ctx, path)
	if err != nil {
		p.Context.Logger.WithError(err).Debug("Conflict scan failed")
		return 0, nil
	}
	if key, ok := p.Context.RelPath(path); ok && len(conflicts) > 0 {
		printf(env.Stdout, "%s", WipWarning(key, conflicts, p.Context.Clock()))
	}
	return 0, nil
}

// WipWarning renders the notice printed after an edit to a file other
// sessions are also working on.
func WipWarning(key string, conflicts []models.Conflict, now time.Time) string {
	var b strings.Builder
	b.WriteString("[WIP] Potential conflict detected\n")
	b.WriteString("File: " + key + "\n\nOther sessions working on this file:\n")
	for _, c := range conflicts {
		b.WriteString("  - " + c.Developer + "@" + c.Hostname + " (")
		b.WriteString(pluralEdits(c.AccessCount) + ", last " + sessions.FormatAge(now.Sub(c.LastAccess)) + " ago)\n")
	}
	b.WriteString("\nConsider coordinating before making changes.\n")
	return b.String()
}

func pluralEdits(n int) string {
	if n == 1 {
		return "1 edit"
	}
	return strconv.Itoa(n) + " edits"
}

// SyncCheck checks the remote when the TTL has elapsed and prints the
// report when there is something to act on.
func SyncCheck(ctx context.Context, env *Env) (int, error) {
	res, ran, err := env.Project.Sync.RunIfDue(ctx, false)
	if err != nil || !ran {
		return 0, err
	}
	if report := syncmon.BuildSyncReport(res); report != "" {
		printf(env.Stdout, "%s\n", report)
	}
	return 0, nil
}

// SessionStart registers the session, or heartbeats it when it is
// already registered and live.
func SessionStart(ctx context.Context, env *Env) (int, error) {
	p := env.Project
	rec, err := p.Sessions.Register(ctx, sessions.RegisterOptions{})
	if errors.Is(err, errors.ErrCodeSessionExists) {
		rec, err = p.Sessions.Heartbeat(ctx, sessions.Updates{})
	}
	if err != nil {
		return 0, err
	}
	printf(env.Stdout, "[SESSION] %s on branch %s\n", rec.SessionID, rec.Branch)
	return 0, nil
}

// SessionEnd ends the session. A session that was never registered is not
// an error.
func SessionEnd(ctx context.Context, env *Env) (int, error) {
	_, err := env.Project.Sessions.End(ctx)
	if errors.Is(err, errors.ErrCodeSessionNotFound) {
		return 0, nil
	}
	return 0, err
}
