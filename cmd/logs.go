package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/util/sanitize"
	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// logLine is one line read from a component log file.
type logLine struct {
	File string
	Text string
}

// NewLogsCmd creates the `logs` command.
func NewLogsCmd() *cobra.Command {
	var (
		follow    bool
		component string
		tailLines int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show coord log files for the current project",
		Long: `Prints the component logs under <registry_dir>/logs. Hooks run with
stderr piped, so this is where their activity ends up.

Examples:
  # Follow everything the hooks log
  coord logs -f

  # Last 50 lines from the conflict-check hook, as JSON lines
  coord logs --component hook-conflict-check --tail 50 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := cli.OpenProject(ctx, cmd, "logs")
			if err != nil {
				return err
			}
			dir := p.LogDir()
			p.Close()

			out := cmd.OutOrStdout()
			jsonOut := cli.GetOptions(cmd).JSONOutput
			styles := cli.NewStyles(out)
			emitLine := func(l logLine) {
				if !componentMatches(l.Text, component) {
					return
				}
				if jsonOut {
					fmt.Fprintln(out, l.Text)
					return
				}
				fmt.Fprintln(out, formatLogLine(styles, l.Text))
			}

			if !follow {
				var lines []logLine
				for _, f := range findLogFiles(dir, component) {
					readLog(ctx, f, false, func(l logLine) bool {
						lines = append(lines, l)
						return true
					})
				}
				if tailLines >= 0 && len(lines) > tailLines {
					lines = lines[len(lines)-tailLines:]
				}
				for _, l := range lines {
					emitLine(l)
				}
				return nil
			}

			followLogs(ctx, dir, component, emitLine)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output, picking up new files as they appear")
	cmd.Flags().StringVar(&component, "component", "", "Only show this component (e.g. hook-track, sync)")
	cmd.Flags().IntVar(&tailLines, "tail", -1, "Number of lines to show from the end (ignored with -f)")
	return cmd
}

// findLogFiles returns the log files in dir, oldest first. A component
// restricts the result to that component's files.
func findLogFiles(dir, component string) []string {
	files, err := filepath.Glob(filepath.Join(dir, "*.log"))
	if err != nil {
		return nil
	}
	if component != "" {
		prefix := sanitize.ForFilename(component) + "-"
		kept := files[:0]
		for _, f := range files {
			if strings.HasPrefix(filepath.Base(f), prefix) {
				kept = append(kept, f)
			}
		}
		files = kept
	}

	mod := make(map[string]time.Time, len(files))
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			mod[f] = info.ModTime()
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		if !mod[files[i]].Equal(mod[files[j]]) {
			return mod[files[i]].Before(mod[files[j]])
		}
		return files[i] < files[j]
	})
	return files
}

// readLog streams the lines of path to emit until the file ends, or with
// follow until ctx is done. emit returning false stops reading.
func readLog(ctx context.Context, path string, follow bool, emit func(logLine) bool) {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Location:  &tail.SeekInfo{Offset: 0, Whence: io.SeekStart},
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return
	}
	defer t.Cleanup()
	defer t.Stop()

	name := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-t.Lines:
			if !ok {
				return
			}
			if line.Err != nil {
				continue
			}
			if !emit(logLine{File: name, Text: line.Text}) {
				return
			}
		}
	}
}

// followLogs tails every log file in dir, including files created later,
// until ctx is done.
func followLogs(ctx context.Context, dir, component string, emit func(logLine)) {
	lines := make(chan logLine, 100)
	var wg sync.WaitGroup
	started := make(map[string]bool)

	startAll := func() {
		for _, f := range findLogFiles(dir, component) {
			if started[f] {
				continue
			}
			started[f] = true
			wg.Add(1)
			go func(path string) {
				defer wg.Done()
				readLog(ctx, path, true, func(l logLine) bool {
					select {
					case lines <- l:
						return true
					case <-ctx.Done():
						return false
					}
				})
			}(f)
		}
	}

	startAll()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				startAll()
			}
		}
	}()
	go func() {
		wg.Wait()
		close(lines)
	}()

	for l := range lines {
		emit(l)
	}
}

// componentMatches filters JSON lines by their component field. Lines
// that are not JSON always match.
func componentMatches(text, component string) bool {
	if component == "" {
		return true
	}
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(text), &entry); err != nil {
		return true
	}
	c, _ := entry["component"].(string)
	return c == "" || c == component
}

// formatLogLine pretty-prints a JSON log line for a human.
func formatLogLine(s *cli.Styles, text string) string {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(text), &entry); err != nil {
		return text
	}

	ts, _ := entry["time"].(string)
	level, _ := entry["level"].(string)
	msg, _ := entry["msg"].(string)
	component, _ := entry["component"].(string)

	timeStr := ts
	if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		timeStr = parsed.Format("15:04:05")
	}

	levelStyle := s.Muted
	switch strings.ToLower(level) {
	case "error", "fatal", "panic":
		levelStyle = s.Error
	case "warning":
		levelStyle = s.Warning
	case "info":
		levelStyle = s.Accent
	}

	var keys []string
	for k := range entry {
		switch k {
		case "time", "level", "msg", "component":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	fields := make([]string, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, fmt.Sprintf("%s=%v", s.Muted.Render(k), entry[k]))
	}

	line := fmt.Sprintf("%s %s [%s] %s", timeStr, levelStyle.Render(strings.ToUpper(level)), s.Muted.Render(component), msg)
	if len(fields) > 0 {
		line += " " + strings.Join(fields, " ")
	}
	return line
}
