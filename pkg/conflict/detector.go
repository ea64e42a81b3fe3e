// Package conflict decides, before a file is edited, whether other
// sessions, the remote, or local uncommitted work make the edit risky.
// It only reads state and never fails closed: any source that errors is
// treated as unavailable.
package conflict

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/grovetools/coord/config"
	"github.com/grovetools/coord/git"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/profiling"
	"github.com/grovetools/coord/pkg/syncmon"
)

// Mode controls whether a critical report blocks the edit.
type Mode string

const (
	ModeWarn  Mode = config.ModeWarn
	ModeBlock Mode = config.ModeBlock
	ModeSkip  Mode = config.ModeSkip
)

// ParseMode accepts warn, block and skip in any case. Anything else is
// reported as not ok and should be treated as warn.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeWarn, ModeBlock, ModeSkip:
		return m, true
	}
	return ModeWarn, false
}

// Operation is the kind of change about to be made.
type Operation string

const (
	OpEdit  Operation = "edit"
	OpWrite Operation = "write"
)

// OperationForTool maps a host tool name to an operation. ok is false for
// tools that are not checked.
func OperationForTool(tool string) (Operation, bool) {
	switch tool {
	case models.ToolEdit, models.ToolMultiEdit:
		return OpEdit, true
	case models.ToolWrite:
		return OpWrite, true
	}
	return "", false
}

// WipSource finds other sessions touching a path.
type WipSource interface {
	CheckFileConflicts(ctx context.Context, path string) ([]models.Conflict, error)
}

// RemoteSource finds unpulled remote changes to a path.
type RemoteSource interface {
	FileDivergence(ctx context.Context, path string) (*syncmon.Divergence, error)
}

// Detector fuses the three sources into one report.
type Detector struct {
	c      *coord.Context
	wip    WipSource
	remote RemoteSource
	status git.StatusProvider
}

// Option customises a Detector.
type Option func(*Detector)

// WithStatus replaces the git client used for local changes.
func WithStatus(p git.StatusProvider) Option {
	return func(d *Detector) { d.status = p }
}

// NewDetector builds a detector. remote may be nil to disable the remote
// signal.
func NewDetector(c *coord.Context, wip WipSource, remote RemoteSource, opts ...Option) *Detector {
	d := &Detector{
		c:      c,
		wip:    wip,
		remote: remote,
		status: git.NewCLIRepository(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Check returns the report for an operation on path, or nil when the edit
// may proceed silently: skip mode, a path outside the project or ignored,
// a write that creates a new file, or no signal from any source.
func (d *Detector) Check(ctx context.Context, path string, op Operation, mode Mode) *Report {
	if mode == ModeSkip {
		return nil
	}
	defer profiling.Start("conflict.check").Stop()
	log := d.c.Logger

	key, ok := d.c.RelPath(path)
	if !ok || d.c.Ignored(key) {
		log.Debugf("Not checking %s: outside project or ignored", path)
		return nil
	}
	abs := filepath.Join(d.c.RootDir, filepath.FromSlash(key))
	if op == OpWrite {
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			return nil
		}
	}

	var wipConflicts []models.Conflict
	if d.wip != nil {
		conflicts, err := d.wip.CheckFileConflicts(ctx, key)
		if err != nil {
			log.WithError(err).Warn("WIP registry unavailable")
		} else {
			wipConflicts = conflicts
		}
	}

	local := d.localChanges(ctx, key)

	var remote *syncmon.Divergence
	if d.remote != nil {
		div, err := d.remote.FileDivergence(ctx, key)
		if err != nil {
			log.WithError(err).Debug("Remote signal unavailable")
		} else {
			remote = div
		}
	}

	severity, found := Assess(len(wipConflicts) > 0, remote != nil, local != nil)
	if !found {
		return nil
	}

	r := &Report{
		Path:          key,
		Operation:     op,
		Mode:          mode,
		Severity:      severity,
		WipConflicts:  wipConflicts,
		RemoteChanges: remote,
		LocalChanges:  local,
		GeneratedAt:   d.c.Clock(),
	}
	log.WithField("severity", severity).WithField("path", key).Info("Conflict report generated")
	return r
}

func (d *Detector) localChanges(ctx context.Context, key string) *LocalChanges {
	st, err := d.status.FileStatus(ctx, d.c.RootDir, key)
	if err != nil {
		d.c.Logger.WithError(err).Debug("Local status unavailable")
		return nil
	}
	if !st.HasChanges() {
		return nil
	}
	return &LocalChanges{Staged: st.Staged, Unstaged: st.Unstaged, Conflicted: st.Conflicted}
}

// Assess applies the severity rule. critical requires both WIP conflicts
// and remote changes; any other non-empty combination is a warning.
// Local changes never raise severity on their own. found is false when all
// sources are empty.
func Assess(hasWip, hasRemote, hasLocal bool) (severity Severity, found bool) {
	if !hasWip && !hasRemote && !hasLocal {
		return "", false
	}
	if hasWip && hasRemote {
		return SeverityCritical, true
	}
	return SeverityWarning, true
}
