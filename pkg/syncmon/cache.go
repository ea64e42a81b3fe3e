package syncmon

import (
	"context"
	"time"

	"github.com/grovetools/coord/pkg/coord"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/registry"
)

// CacheKey is the document the throttle timestamp is stored under.
const CacheKey = "remote-sync"

// Summary is the numeric outcome kept in the throttle cache.
type Summary struct {
	Status            string `json:"status"`
	Reason            string `json:"reason,omitempty"`
	Behind            int    `json:"behind"`
	Ahead             int    `json:"ahead"`
	DependencyChanges int    `json:"depChanges"`
	BreakingChanges   int    `json:"breakingChanges"`
	HighImpactChanges int    `json:"highImpactChanges"`
}

// SyncCacheRecord is the throttle cache document.
type SyncCacheRecord struct {
	SchemaVersion int       `json:"schemaVersion"`
	Timestamp     time.Time `json:"timestamp"`
	Result        *Summary  `json:"result"`
}

// Summarize reduces a result to its cached counters.
func Summarize(r *Result) *Summary {
	return &Summary{
		Status:            r.Status,
		Reason:            r.Reason,
		Behind:            r.Behind,
		Ahead:             r.Ahead,
		DependencyChanges: len(r.DependencyChanges),
		BreakingChanges:   len(r.BreakingChanges),
		HighImpactChanges: len(r.HighImpactChanges),
	}
}

// LastCheck returns the cached record, or nil when it is missing or
// unreadable.
func (m *Monitor) LastCheck(ctx context.Context) *SyncCacheRecord {
	var rec SyncCacheRecord
	if err := registry.GetJSON(ctx, m.cache, coord.CacheBucket, CacheKey, &rec); err != nil {
		return nil
	}
	if rec.Timestamp.IsZero() {
		return nil
	}
	return &rec
}

// ShouldRun reports whether the TTL has elapsed since the last check. A
// missing or corrupt cache, or a timestamp in the future, means a check is
// due.
func (m *Monitor) ShouldRun(ctx context.Context) bool {
	rec := m.LastCheck(ctx)
	if rec == nil {
		return true
	}
	age := m.c.Clock().Sub(rec.Timestamp)
	if age < 0 {
		return true
	}
	return age >= m.c.Thresholds.SyncTTL
}

func (m *Monitor) markChecked(ctx context.Context, res *Result) error {
	rec := &SyncCacheRecord{
		SchemaVersion: models.SchemaVersion,
		Timestamp:     m.c.Clock(),
		Result:        Summarize(res),
	}
	return registry.PutJSON(ctx, m.cache, coord.CacheBucket, CacheKey, rec)
}
