// Package wip is the work-in-progress registry: a per-session projection
// of which files each session is touching, scanned by other sessions
// before they edit.
package wip

import (
	"context"
	"sort"

	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/registry"
)

// Registry reads and writes WipRecords in the "wip" bucket.
type Registry struct {
	c     *coord.Context
	store registry.Store
}

// NewRegistry returns a registry over store.
func NewRegistry(c *coord.Context, store registry.Store) *Registry {
	return &Registry{c: c, store: store}
}

// Publish writes the calling session's projection. Records for other
// sessions are refused.
func (r *Registry) Publish(ctx context.Context, rec *models.WipRecord) error {
	if rec.SessionID != r.c.SessionID {
		return errors.New(errors.ErrCodePermissionDenied, "cannot publish another session's wip record").
			WithDetail("sessionId", rec.SessionID)
	}
	rec.SchemaVersion = models.SchemaVersion
	return registry.PutJSON(ctx, r.store, coord.WipBucket, rec.SessionID, rec)
}

// Withdraw removes the calling session from conflict visibility.
func (r *Registry) Withdraw(ctx context.Context) error {
	return r.store.Delete(ctx, coord.WipBucket, r.c.SessionID)
}

// Get loads one session's record.
func (r *Registry) Get(ctx context.Context, sessionID string) (*models.WipRecord, error) {
	var rec models.WipRecord
	if err := registry.GetJSON(ctx, r.store, coord.WipBucket, sessionID, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// scan visits every readable record. Unreadable records are passed to
// onCorrupt, if set, and otherwise skipped.
func (r *Registry) scan(ctx context.Context, visit func(key string, rec *models.WipRecord), onCorrupt func(key string, err error)) error {
	keys, err := r.store.Keys(ctx, coord.WipBucket)
	if err != nil {
		return err
	}
	for _, key := range keys {
		rec, err := r.Get(ctx, key)
		if err != nil {
			if errors.Is(err, errors.ErrCodeRecordNotFound) {
				continue
			}
			r.c.Logger.WithError(err).WithField("key", key).Debug("Skipping unreadable wip record")
			if onCorrupt != nil {
				onCorrupt(key, err)
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

// CheckFileConflicts returns every other session that touched path within
// the stale threshold. Paths outside the project or ignored yield nothing.
// Result order is unspecified.
func (r *Registry) CheckFileConflicts(ctx context.Context, path string) ([]models.Conflict, error) {
	key, ok := r.c.RelPath(path)
	if !ok || r.c.Ignored(key) {
		return nil, nil
	}

	now := r.c.Clock()
	var conflicts []models.Conflict
	err := r.scan(ctx, func(_ string, rec *models.WipRecord) {
		if rec.SessionID == r.c.SessionID {
			return
		}
		if rec.Age(now) > r.c.Thresholds.Stale {
			return
		}
		f, ok := rec.Files[key]
		if !ok || f == nil {
			return
		}
		conflicts = append(conflicts, models.Conflict{
			Developer:   rec.Developer,
			Hostname:    rec.Hostname,
			SessionID:   rec.SessionID,
			LastAccess:  f.LastAccess,
			AccessCount: f.AccessCount,
		})
	}, nil)
	if err != nil {
		return nil, err
	}
	return conflicts, nil
}

// List returns readable records, most recently active first. Records
// older than the stale threshold are included only when includeStale.
func (r *Registry) List(ctx context.Context, includeStale bool) ([]*models.WipRecord, error) {
	now := r.c.Clock()
	var out []*models.WipRecord
	err := r.scan(ctx, func(_ string, rec *models.WipRecord) {
		if !includeStale && rec.Age(now) > r.c.Thresholds.Stale {
			return
		}
		out = append(out, rec)
	}, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
	return out, nil
}

// Purge deletes records older than the stale threshold and records that
// cannot be read. It returns how many were removed.
func (r *Registry) Purge(ctx context.Context) (int, error) {
	now := r.c.Clock()
	var doomed []string
	err := r.scan(ctx, func(key string, rec *models.WipRecord) {
		if rec.Age(now) > r.c.Thresholds.Stale {
			doomed = append(doomed, key)
		}
	}, func(key string, _ error) {
		doomed = append(doomed, key)
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range doomed {
		if err := r.store.Delete(ctx, coord.WipBucket, key); err != nil {
			r.c.Logger.WithError(err).WithField("key", key).Warn("Failed to delete wip record")
			continue
		}
		removed++
	}
	return removed, nil
}
