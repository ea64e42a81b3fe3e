package logging

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

var (
	componentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	levelStyles    = map[logrus.Level]lipgloss.Style{
		logrus.DebugLevel: lipgloss.NewStyle().Faint(true),
		logrus.TraceLevel: lipgloss.NewStyle().Faint(true),
		logrus.WarnLevel:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		logrus.ErrorLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		logrus.FatalLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		logrus.PanicLevel: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// TextFormatter is a custom logrus formatter.
type TextFormatter struct {
	Config FormatConfig
	// Color enables lipgloss styling; leave false for files and pipes.
	Color bool
}

// Format renders a single log entry.
func (f *TextFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b strings.Builder

	if !f.Config.DisableTimestamp {
		b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
		b.WriteString(" ")
	}

	levelStr := entry.Level.String()
	if levelStr == "warning" {
		levelStr = "warn"
	}
	level := fmt.Sprintf("[%s]", strings.ToUpper(levelStr))
	if style, ok := levelStyles[entry.Level]; ok && f.Color {
		level = style.Render(level)
	}
	b.WriteString(level)

	if component, ok := entry.Data["component"]; ok && !f.Config.DisableComponent {
		componentStr := fmt.Sprintf("%v", component)
		if f.Color {
			componentStr = componentStyle.Render(componentStr)
		}
		b.WriteString(fmt.Sprintf(" [%s]", componentStr))
	}

	if entry.HasCaller() {
		fileName := filepath.Base(entry.Caller.File)
		funcName := filepath.Base(entry.Caller.Function)
		b.WriteString(fmt.Sprintf(" [%s:%d %s]", fileName, entry.Caller.Line, funcName))
	}

	b.WriteString(" ")
	b.WriteString(entry.Message)

	// Remaining fields in stable order
	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != "component" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", key, entry.Data[key]))
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}
