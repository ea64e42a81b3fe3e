// Package models defines the records the coordination layer persists.
// Every record carries a schemaVersion so older readers can detect newer
// documents.
package models

import (
	"sort"
	"time"
)

// SchemaVersion is written into every persisted record.
const SchemaVersion = 1

// MaxOperations bounds FileAccessRecord.Operations.
const MaxOperations = 10

// Status is the explicitly stored lifecycle state. Stale and zombie are
// derived at read time and never stored.
type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Tool names reported by the agent host.
const (
	ToolEdit         = "Edit"
	ToolMultiEdit    = "MultiEdit"
	ToolWrite        = "Write"
	ToolRead         = "Read"
	ToolNotebookEdit = "NotebookEdit"
)

// IsEditTool reports whether tool modifies a file.
func IsEditTool(tool string) bool {
	switch tool {
	case ToolEdit, ToolMultiEdit, ToolWrite, ToolNotebookEdit:
		return true
	}
	return false
}

// Operation is one tool invocation against a file.
type Operation struct {
	Tool string    `json:"tool"`
	Time time.Time `json:"time"`
}

// FileAccessRecord tracks one session's activity on one file.
type FileAccessRecord struct {
	FirstAccess time.Time   `json:"firstAccess"`
	LastAccess  time.Time   `json:"lastAccess"`
	AccessCount int         `json:"accessCount"`
	Operations  []Operation `json:"operations"`
}

// Touch records an access, evicting the oldest operations beyond
// MaxOperations.
func (f *FileAccessRecord) Touch(tool string, now time.Time) {
	if f.FirstAccess.IsZero() {
		f.FirstAccess = now
	}
	if now.After(f.LastAccess) {
		f.LastAccess = now
	}
	f.AccessCount++
	f.Operations = append(f.Operations, Operation{Tool: tool, Time: now})
	if n := len(f.Operations); n > MaxOperations {
		f.Operations = append([]Operation(nil), f.Operations[n-MaxOperations:]...)
	}
}

// Stats are per-session tool counters.
type Stats struct {
	ToolCalls int `json:"toolCalls"`
	Edits     int `json:"edits"`
	Writes    int `json:"writes"`
	Reads     int `json:"reads"`
}

// Record counts one tool call by kind.
func (s *Stats) Record(tool string) {
	s.ToolCalls++
	switch tool {
	case ToolEdit, ToolMultiEdit, ToolNotebookEdit:
		s.Edits++
	case ToolWrite:
		s.Writes++
	case ToolRead:
		s.Reads++
	}
}

// Merge takes the larger of each counter. Counters only grow, so this
// never loses updates from the owning process.
func (s *Stats) Merge(o Stats) {
	s.ToolCalls = maxInt(s.ToolCalls, o.ToolCalls)
	s.Edits = maxInt(s.Edits, o.Edits)
	s.Writes = maxInt(s.Writes, o.Writes)
	s.Reads = maxInt(s.Reads, o.Reads)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// SessionRecord is the durable state of one session. Only the owning
// session writes it; anyone may read it.
type SessionRecord struct {
	SchemaVersion int                          `json:"schemaVersion"`
	SessionID     string                       `json:"sessionId"`
	Developer     string                       `json:"developer"`
	Hostname      string                       `json:"hostname"`
	Platform      string                       `json:"platform"`
	PID           int                          `json:"pid,omitempty"`
	Started       time.Time                    `json:"started"`
	LastHeartbeat time.Time                    `json:"lastHeartbeat"`
	Status        Status                       `json:"status"`
	EndedAt       *time.Time                   `json:"endedAt"`
	WorkingOn     *string                      `json:"workingOn"`
	Branch        string                       `json:"branch"`
	Files         map[string]*FileAccessRecord `json:"files"`
	Stats         Stats                        `json:"stats"`
}

// Age returns how long ago the session last heartbeat.
func (r *SessionRecord) Age(now time.Time) time.Duration {
	return now.Sub(r.LastHeartbeat)
}

// Classify derives the session's liveness tier.
func (r *SessionRecord) Classify(now time.Time, stale, zombie time.Duration) Classification {
	return Classify(r.Age(now), r.Status, stale, zombie)
}

// Heartbeat moves LastHeartbeat forward. It never moves backwards.
func (r *SessionRecord) Heartbeat(now time.Time) {
	if now.After(r.LastHeartbeat) {
		r.LastHeartbeat = now
	}
}

// TouchFile records an access to a project-relative key.
func (r *SessionRecord) TouchFile(key, tool string, now time.Time) *FileAccessRecord {
	if r.Files == nil {
		r.Files = make(map[string]*FileAccessRecord)
	}
	f, ok := r.Files[key]
	if !ok || f == nil {
		f = &FileAccessRecord{}
		r.Files[key] = f
	}
	f.Touch(tool, now)
	r.Stats.Record(tool)
	return f
}

// FileKeys returns the tracked paths in sorted order.
func (r *SessionRecord) FileKeys() []string {
	keys := make([]string, 0, len(r.Files))
	for k := range r.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WorkingOnText returns WorkingOn or "".
func (r *SessionRecord) WorkingOnText() string {
	if r.WorkingOn == nil {
		return ""
	}
	return *r.WorkingOn
}

// Projection builds the WipRecord mirrored for conflict lookups.
// LastActivity is the later of the heartbeat and the newest file access.
func (r *SessionRecord) Projection() *WipRecord {
	last := r.LastHeartbeat
	files := make(map[string]*FileAccessRecord, len(r.Files))
	for k, v := range r.Files {
		if v == nil {
			continue
		}
		if v.LastAccess.After(last) {
			last = v.LastAccess
		}
		cp := *v
		cp.Operations = append([]Operation(nil), v.Operations...)
		files[k] = &cp
	}
	return &WipRecord{
		SchemaVersion: SchemaVersion,
		SessionID:     r.SessionID,
		Developer:     r.Developer,
		Hostname:      r.Hostname,
		Started:       r.Started,
		LastActivity:  last,
		Files:         files,
		Stats:         r.Stats,
	}
}
