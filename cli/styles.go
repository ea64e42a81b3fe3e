package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/grovetools/coord/pkg/conflict"
	"github.com/grovetools/coord/pkg/models"
)

var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#4E7C5A", Dark: "#98BB6C"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#A68A64", Dark: "#FF9E3B"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#C34043", Dark: "#FF5D62"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#5B8BBE", Dark: "#7E9CD8"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#6C7086", Dark: "#727169"}
	colorBorder = lipgloss.AdaptiveColor{Light: "#B5BDC5", Dark: "#363646"}
)

// Styles renders command output. Colors are dropped when the writer is not
// a terminal.
type Styles struct {
	renderer *lipgloss.Renderer

	Header  lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Accent  lipgloss.Style
}

// NewStyles builds styles for output written to w.
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		renderer: r,
		Header:   r.NewStyle().Bold(true),
		Muted:    r.NewStyle().Foreground(colorMuted),
		Success:  r.NewStyle().Foreground(colorGreen),
		Warning:  r.NewStyle().Foreground(colorYellow),
		Error:    r.NewStyle().Foreground(colorRed).Bold(true),
		Accent:   r.NewStyle().Foreground(colorCyan),
	}
}

// Class colors a session classification.
func (s *Styles) Class(c models.Classification) string {
	switch c {
	case models.ClassActive:
		return s.Success.Render(string(c))
	case models.ClassStale:
		return s.Warning.Render(string(c))
	case models.ClassZombie:
		return s.Error.Render(string(c))
	}
	return s.Muted.Render(string(c))
}

// Severity colors a conflict severity.
func (s *Styles) Severity(sev conflict.Severity) string {
	if sev == conflict.SeverityCritical {
		return s.Error.Render(string(sev))
	}
	return s.Warning.Render(string(sev))
}

// Table renders rows under headers with a rounded border.
func (s *Styles) Table(headers []string, rows [][]string) string {
	header := s.Header.Padding(0, 1)
	cell := s.renderer.NewStyle().Padding(0, 1)
	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.renderer.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				return header
			}
			return cell
		})
	return t.Render()
}
