package models

import "time"

// WipRecord is the reduced projection of a SessionRecord used for
// cross-session conflict lookups.
type WipRecord struct {
	SchemaVersion int                          `json:"schemaVersion"`
	SessionID     string                       `json:"sessionId"`
	Developer     string                       `json:"developer"`
	Hostname      string                       `json:"hostname"`
	Started       time.Time                    `json:"started"`
	LastActivity  time.Time                    `json:"lastActivity"`
	Files         map[string]*FileAccessRecord `json:"files"`
	Stats         Stats                        `json:"stats"`
}

// Age returns how long ago the session was last active.
func (w *WipRecord) Age(now time.Time) time.Duration {
	return now.Sub(w.LastActivity)
}

// Conflict describes another session that recently touched a file.
type Conflict struct {
	Developer   string    `json:"developer"`
	Hostname    string    `json:"hostname"`
	SessionID   string    `json:"sessionId"`
	LastAccess  time.Time `json:"lastAccess"`
	AccessCount int       `json:"accessCount"`
}
