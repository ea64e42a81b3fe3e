// Package starship renders a compact coordination status for the Starship
// prompt and installs the matching custom module.
package starship

import (
	"context"
	"fmt"
	"strings"

	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/project"
)

// Segment renders one part of the prompt. An empty string hides it.
type Segment func(ctx context.Context, p *project.Project) (string, error)

type namedSegment struct {
	name string
	fn   Segment
}

var segments = []namedSegment{
	{"sessions", SessionsSegment},
	{"wip", WipSegment},
	{"sync", SyncSegment},
}

// RegisterSegment appends a segment, or replaces the one with the same name.
func RegisterSegment(name string, fn Segment) {
	for i := range segments {
		if segments[i].name == name {
			segments[i].fn = fn
			return
		}
	}
	segments = append(segments, namedSegment{name, fn})
}

// SegmentNames lists the registered segments in render order.
func SegmentNames() []string {
	names := make([]string, len(segments))
	for i, s := range segments {
		names[i] = s.name
	}
	return names
}

// Render joins the output of every segment. Segment errors are logged at
// debug level and the segment is hidden.
func Render(ctx context.Context, p *project.Project) string {
	var parts []string
	for _, s := range segments {
		out, err := s.fn(ctx, p)
		if err != nil {
			p.Context.Logger.WithError(err).WithField("segment", s.name).Debug("Prompt segment failed")
			continue
		}
		if out != "" {
			parts = append(parts, out)
		}
	}
	return strings.Join(parts, " ")
}

// SessionsSegment shows how many other sessions are active, e.g. "⚑2".
func SessionsSegment(ctx context.Context, p *project.Project) (string, error) {
	status, err := p.Sessions.Status(ctx)
	if err != nil {
		return "", err
	}
	others := 0
	for _, s := range status.Sessions {
		if !s.Current && s.Classification == models.ClassActive {
			others++
		}
	}
	if others == 0 {
		return "", nil
	}
	return fmt.Sprintf("⚑%d", others), nil
}

// WipSegment shows how many files this session shares with other live
// sessions, e.g. "✎1".
func WipSegment(ctx context.Context, p *project.Project) (string, error) {
	mine, err := p.WIP().Get(ctx, p.Context.SessionID)
	if err != nil || mine == nil || len(mine.Files) == 0 {
		return "", nil
	}
	records, err := p.WIP().List(ctx, false)
	if err != nil {
		return "", err
	}
	shared := map[string]bool{}
	for _, rec := range records {
		if rec.SessionID == mine.SessionID {
			continue
		}
		for path := range rec.Files {
			if _, ok := mine.Files[path]; ok {
				shared[path] = true
			}
		}
	}
	if len(shared) == 0 {
		return "", nil
	}
	return fmt.Sprintf("✎%d", len(shared)), nil
}

// SyncSegment shows the cached behind count, e.g. "↓3", with a trailing
// "!" when breaking commits were seen. It never runs git.
func SyncSegment(ctx context.Context, p *project.Project) (string, error) {
	last := p.Sync.LastCheck(ctx)
	if last == nil || last.Result == nil || last.Result.Behind == 0 {
		return "", nil
	}
	out := fmt.Sprintf("↓%d", last.Result.Behind)
	if last.Result.BreakingChanges > 0 {
		out += "!"
	}
	return out, nil
}
