// Package profiling times the phases of a single coord invocation. Hooks run
// on every tool call, so the tree printed by --timing is the quickest way to
// see where a slow hook spends its time.
package profiling

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stopper ends a span started with Start.
type Stopper interface {
	Stop()
}

type span struct {
	name     string
	start    time.Time
	duration time.Duration
	children []*span
	tracker  *tracker
}

func (s *span) Stop() {
	s.tracker.end(s)
}

type tracker struct {
	mu      sync.Mutex
	enabled bool
	now     func() time.Time
	root    *span
	stack   []*span
}

var global = &tracker{now: time.Now}

// Enable starts recording spans. Calling it twice keeps the first root.
func Enable() {
	global.mu.Lock()
	defer global.mu.Unlock()
	if global.enabled {
		return
	}
	global.enabled = true
	global.root = &span{name: "", start: global.now(), tracker: global}
	global.stack = []*span{global.root}
}

// Enabled reports whether spans are being recorded.
func Enabled() bool {
	global.mu.Lock()
	defer global.mu.Unlock()
	return global.enabled
}

// Reset disables recording and drops every span.
func Reset() {
	global.mu.Lock()
	defer global.mu.Unlock()
	global.enabled = false
	global.root = nil
	global.stack = nil
}

// Start opens a span nested under the innermost open span.
//
//	defer profiling.Start("conflict.check").Stop()
func Start(name string) Stopper {
	return global.begin(name)
}

// Summarize writes the span tree with each span's share of the total.
func Summarize(w io.Writer) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if !global.enabled || global.root == nil {
		return
	}
	if global.root.duration == 0 {
		global.root.duration = global.now().Sub(global.root.start)
	}
	total := global.root.duration
	fmt.Fprintf(w, "\ntiming (total %v)\n", total.Round(100*time.Microsecond))
	for _, child := range ordered(global.root.children) {
		writeSpan(w, child, 1, total)
	}
}

func (t *tracker) begin(name string) Stopper {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return noop{}
	}
	s := &span{name: name, start: t.now(), tracker: t}
	parent := t.stack[len(t.stack)-1]
	parent.children = append(parent.children, s)
	t.stack = append(t.stack, s)
	return s
}

func (t *tracker) end(s *span) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s.duration = t.now().Sub(s.start)
	// Pop s and anything left open above it.
	for i := len(t.stack) - 1; i > 0; i-- {
		if t.stack[i] == s {
			t.stack = t.stack[:i]
			return
		}
	}
}

func ordered(spans []*span) []*span {
	out := append([]*span(nil), spans...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].start.Before(out[j].start)
	})
	return out
}

func writeSpan(w io.Writer, s *span, depth int, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = float64(s.duration) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s%s %v (%.1f%%)\n",
		strings.Repeat("  ", depth), s.name, s.duration.Round(100*time.Microsecond), pct)
	for _, child := range ordered(s.children) {
		writeSpan(w, child, depth+1, total)
	}
}

type noop struct{}

func (noop) Stop() {}
