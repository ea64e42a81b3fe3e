package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/process"
)

// Summary is the one-line view of a session used by status output.
type Summary struct {
	SessionID      string                `json:"sessionId"`
	Developer      string                `json:"developer"`
	Hostname       string                `json:"hostname"`
	Branch         string                `json:"branch"`
	AgeHuman       string                `json:"ageHuman"`
	Classification models.Classification `json:"classification"`
	FileCount      int                   `json:"fileCount"`
	WorkingOn      string                `json:"workingOn,omitempty"`
	Process        process.Liveness      `json:"process"`
	Current        bool                  `json:"current"`
}

// Status is the overview returned by Manager.Status.
type Status struct {
	CurrentSession string    `json:"currentSession"`
	Registered     bool      `json:"registered"`
	Active         int       `json:"active"`
	Stale          int       `json:"stale"`
	Sessions       []Summary `json:"sessions"`
}

// Status summarises the live sessions and whether the calling session is
// registered.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	entries, err := m.List(ctx, false)
	if err != nil {
		return nil, err
	}

	st := &Status{CurrentSession: m.c.SessionID, Sessions: []Summary{}}
	for _, e := range entries {
		switch e.Class {
		case models.ClassActive:
			st.Active++
		case models.ClassStale:
			st.Stale++
		}
		current := e.Record.SessionID == m.c.SessionID
		if current {
			st.Registered = true
		}
		st.Sessions = append(st.Sessions, m.Summarize(e, current))
	}
	return st, nil
}

// Summarize builds the status line for one entry.
func (m *Manager) Summarize(e Entry, current bool) Summary {
	rec := e.Record
	return Summary{
		SessionID:      rec.SessionID,
		Developer:      rec.Developer,
		Hostname:       rec.Hostname,
		Branch:         rec.Branch,
		AgeHuman:       FormatAge(e.Age),
		Classification: e.Class,
		FileCount:      len(rec.Files),
		WorkingOn:      rec.WorkingOnText(),
		Process:        process.Probe(rec.PID, rec.Hostname, m.c.Identity.Hostname),
		Current:        current,
	}
}

// FormatAge renders a duration as "45s", "12m", "3h 5m" or "2d 4h".
// Negative durations render as "0s".
func FormatAge(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh %dm", int(d/time.Hour), int((d%time.Hour)/time.Minute))
	default:
		days := int(d / (24 * time.Hour))
		hours := int((d % (24 * time.Hour)) / time.Hour)
		return fmt.Sprintf("%dd %dh", days, hours)
	}
}
