// Package sessions is the session lifecycle manager: it owns the calling
// session's SessionRecord and keeps its WIP projection in step.
package sessions

import (
	"context"
	"sort"
	"time"

	"github.com/grovetools/coord/command"
	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/git"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/registry"
	"github.com/grovetools/coord/pkg/wip"
	"github.com/grovetools/coord/state"
	"github.com/sirupsen/logrus"
)

// Manager implements register, heartbeat, end, list and cleanup for the
// session named by its Context. It writes only that session's records.
type Manager struct {
	c     *coord.Context
	store registry.Store
	wip   *wip.Registry
	repo  git.RepositoryProvider
	state *state.File
}

// Option customises a Manager.
type Option func(*Manager)

// WithRepository replaces the git client used to record the branch.
func WithRepository(p git.RepositoryProvider) Option {
	return func(m *Manager) { m.repo = p }
}

// WithStateFile replaces the file the current session id is remembered in.
func WithStateFile(f *state.File) Option {
	return func(m *Manager) { m.state = f }
}

// NewManager builds a manager over store.
func NewManager(c *coord.Context, store registry.Store, opts ...Option) *Manager {
	m := &Manager{
		c:     c,
		store: store,
		wip:   wip.NewRegistry(c, store),
		repo:  git.NewCLIRepository(),
		state: state.Open(c.StatePath()),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WIP returns the WIP registry the manager mirrors into.
func (m *Manager) WIP() *wip.Registry {
	return m.wip
}

// RegisterOptions are the caller-supplied fields of a new session.
type RegisterOptions struct {
	WorkingOn *string
	// Force overwrites an existing active record with the same id.
	Force bool
}

// Updates are merged into the session record by Heartbeat. Nil fields are
// left untouched.
type Updates struct {
	WorkingOn *string
	Stats     *models.Stats
	Files     map[string]*models.FileAccessRecord
}

// Get loads any session's record.
func (m *Manager) Get(ctx context.Context, sessionID string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := registry.GetJSON(ctx, m.store, coord.SessionsBucket, sessionID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Current loads the calling session's record.
func (m *Manager) Current(ctx context.Context) (*models.SessionRecord, error) {
	rec, err := m.Get(ctx, m.c.SessionID)
	if errors.Is(err, errors.ErrCodeRecordNotFound) {
		return nil, errors.SessionNotFound(m.c.SessionID)
	}
	return rec, err
}

// save persists the record and, unless it has ended, its projection.
func (m *Manager) save(ctx context.Context, rec *models.SessionRecord) error {
	rec.SchemaVersion = models.SchemaVersion
	if err := registry.PutJSON(ctx, m.store, coord.SessionsBucket, rec.SessionID, rec); err != nil {
		return err
	}
	if rec.Status == models.StatusEnded {
		return nil
	}
	return m.wip.Publish(ctx, rec.Projection())
}

// Register creates a fresh active record for the calling session. An
// existing record that is still active or stale is refused unless
// opts.Force is set; zombie and ended records are replaced.
func (m *Manager) Register(ctx context.Context, opts RegisterOptions) (*models.SessionRecord, error) {
	if err := command.ValidateSessionID(m.c.SessionID); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid session id")
	}
	if err := m.c.EnsureLayout(); err != nil {
		return nil, err
	}

	now := m.c.Clock()
	if !opts.Force {
		if existing, err := m.Get(ctx, m.c.SessionID); err == nil {
			class := existing.Classify(now, m.c.Thresholds.Stale, m.c.Thresholds.Zombie)
			if class == models.ClassActive || class == models.ClassStale {
				return nil, errors.SessionExists(m.c.SessionID)
			}
		}
	}

	id := m.c.Identity
	rec := &models.SessionRecord{
		SchemaVersion: models.SchemaVersion,
		SessionID:     m.c.SessionID,
		Developer:     id.Developer,
		Hostname:      id.Hostname,
		Platform:      id.Platform,
		PID:           id.PID,
		Started:       now,
		LastHeartbeat: now,
		Status:        models.StatusActive,
		WorkingOn:     normalizeWorkingOn(opts.WorkingOn),
		Branch:        git.BranchOrUnknown(ctx, m.repo, m.c.RootDir),
		Files:         map[string]*models.FileAccessRecord{},
	}
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}

	m.c.Logger.WithField("branch", rec.Branch).Infof("Registered session %s", rec.SessionID)
	return rec, nil
}

// own loads the calling session's record, re-registering when it is
// missing, unreadable, or ended.
func (m *Manager) own(ctx context.Context, workingOn *string) (*models.SessionRecord, error) {
	rec, err := m.Get(ctx, m.c.SessionID)
	switch {
	case err == nil && rec.Status != models.StatusEnded:
		return rec, nil
	case err == nil:
		m.c.Logger.Infof("Session %s had ended; registering again", m.c.SessionID)
	case errors.Is(err, errors.ErrCodeRecordNotFound):
		m.c.Logger.Debugf("No record for session %s; registering", m.c.SessionID)
	case errors.Is(err, errors.ErrCodeRecordCorrupt):
		m.c.Logger.WithError(err).Warnf("Session %s record unreadable; registering again", m.c.SessionID)
	default:
		return nil, err
	}
	return m.Register(ctx, RegisterOptions{WorkingOn: workingOn, Force: true})
}

// Heartbeat merges updates into the calling session's record and refreshes
// lastHeartbeat. A missing record is recreated.
func (m *Manager) Heartbeat(ctx context.Context, upd Updates) (*models.SessionRecord, error) {
	rec, err := m.own(ctx, upd.WorkingOn)
	if err != nil {
		return nil, err
	}

	if upd.WorkingOn != nil {
		rec.WorkingOn = normalizeWorkingOn(upd.WorkingOn)
	}
	if upd.Stats != nil {
		rec.Stats.Merge(*upd.Stats)
	}
	for path, f := range upd.Files {
		if f == nil {
			continue
		}
		key, ok := m.c.RelPath(path)
		if !ok {
			continue
		}
		if rec.Files == nil {
			rec.Files = make(map[string]*models.FileAccessRecord)
		}
		cp := *f
		rec.Files[key] = &cp
	}
	rec.Heartbeat(m.c.Clock())

	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// RegisterFileEdit records an access to path by tool in the calling
// session's record and its WIP projection. Ignored paths are a no-op and
// return nil; paths outside the project are INVALID_INPUT.
func (m *Manager) RegisterFileEdit(ctx context.Context, path, tool string) (*models.FileAccessRecord, error) {
	return m.touch(ctx, path, tool, false)
}

// TrackFileEdit is RegisterFileEdit followed by a heartbeat, in one write.
func (m *Manager) TrackFileEdit(ctx context.Context, path, tool string) (*models.FileAccessRecord, error) {
	return m.touch(ctx, path, tool, true)
}

func (m *Manager) touch(ctx context.Context, path, tool string, heartbeat bool) (*models.FileAccessRecord, error) {
	key, ok := m.c.RelPath(path)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "path is outside the project").
			WithDetail("path", path)
	}
	if m.c.Ignored(key) {
		return nil, nil
	}

	rec, err := m.own(ctx, nil)
	if err != nil {
		return nil, err
	}
	now := m.c.Clock()
	f := rec.TouchFile(key, tool, now)
	if heartbeat {
		rec.Heartbeat(now)
	}
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}

	m.c.Logger.WithFields(logrus.Fields{
		"path":        key,
		"tool":        tool,
		"accessCount": f.AccessCount,
	}).Debug("Recorded file access")
	return f, nil
}

// RecordToolCall counts a tool call that does not target a tracked file and
// heartbeats.
func (m *Manager) RecordToolCall(ctx context.Context, tool string) (*models.SessionRecord, error) {
	rec, err := m.own(ctx, nil)
	if err != nil {
		return nil, err
	}
	rec.Stats.Record(tool)
	rec.Heartbeat(m.c.Clock())
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// End marks the calling session ended, removes its WIP record and forgets
// the remembered session id. The session record is kept for audit.
func (m *Manager) End(ctx context.Context) (*models.SessionRecord, error) {
	if err := m.wip.Withdraw(ctx); err != nil {
		m.c.Logger.WithError(err).Warn("Failed to remove wip record")
	}
	if coord.RememberedSessionID(m.state, m.c.Identity) == m.c.SessionID {
		if err := coord.ForgetSessionID(m.state, m.c.Identity); err != nil {
			m.c.Logger.WithError(err).Debug("Failed to clear remembered session id")
		}
	}

	rec, err := m.Current(ctx)
	if err != nil {
		return nil, err
	}
	if rec.Status == models.StatusEnded {
		return rec, nil
	}

	now := m.c.Clock()
	rec.Status = models.StatusEnded
	rec.EndedAt = &now
	if err := m.save(ctx, rec); err != nil {
		return nil, err
	}

	m.c.Logger.Infof("Ended session %s after %s", rec.SessionID, FormatAge(now.Sub(rec.Started)))
	return rec, nil
}

// Entry is a session record with its derived classification.
type Entry struct {
	Record *models.SessionRecord `json:"record"`
	Class  models.Classification `json:"classification"`
	Age    time.Duration         `json:"-"`
}

// List returns readable sessions sorted by lastHeartbeat, newest first.
// Zombie and ended sessions are included only when includeStale.
func (m *Manager) List(ctx context.Context, includeStale bool) ([]Entry, error) {
	now := m.c.Clock()
	var entries []Entry
	err := m.scan(ctx, func(_ string, rec *models.SessionRecord) {
		class := rec.Classify(now, m.c.Thresholds.Stale, m.c.Thresholds.Zombie)
		if !includeStale && class.Removable() {
			return
		}
		entries = append(entries, Entry{Record: rec, Class: class, Age: rec.Age(now)})
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Record.LastHeartbeat.After(entries[j].Record.LastHeartbeat)
	})
	return entries, nil
}

func (m *Manager) scan(ctx context.Context, visit func(key string, rec *models.SessionRecord), onCorrupt func(key string)) error {
	keys, err := m.store.Keys(ctx, coord.SessionsBucket)
	if err != nil {
		return err
	}
	for _, key := range keys {
		rec, err := m.Get(ctx, key)
		if err != nil {
			if errors.Is(err, errors.ErrCodeRecordNotFound) {
				continue
			}
			m.c.Logger.WithError(err).WithField("key", key).Debug("Skipping unreadable session record")
			if onCorrupt != nil {
				onCorrupt(key)
			}
			continue
		}
		if rec.SessionID == "" {
			rec.SessionID = key
		}
		visit(key, rec)
	}
	return nil
}

// CleanupResult counts what Cleanup removed.
type CleanupResult struct {
	Sessions int `json:"sessions"`
	Wip      int `json:"wip"`
}

// Cleanup deletes zombie, ended and unreadable session records, and WIP
// records past the stale threshold. Running it again without new activity
// removes nothing.
func (m *Manager) Cleanup(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult
	now := m.c.Clock()

	var doomed []string
	err := m.scan(ctx, func(key string, rec *models.SessionRecord) {
		if rec.Classify(now, m.c.Thresholds.Stale, m.c.Thresholds.Zombie).Removable() {
			doomed = append(doomed, key)
		}
	}, func(key string) {
		doomed = append(doomed, key)
	})
	if err != nil {
		return result, err
	}
	for _, key := range doomed {
		if err := m.store.Delete(ctx, coord.SessionsBucket, key); err != nil {
			m.c.Logger.WithError(err).WithField("key", key).Warn("Failed to delete session record")
			continue
		}
		result.Sessions++
	}

	n, err := m.wip.Purge(ctx)
	result.Wip = n
	if err != nil {
		return result, err
	}

	if result.Sessions > 0 || result.Wip > 0 {
		m.c.Logger.Infof("Cleanup removed %d session(s) and %d wip record(s)", result.Sessions, result.Wip)
	}
	return result, nil
}

func normalizeWorkingOn(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
