package profiling

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fakeNow(t *testing.T) func(time.Duration) {
	t.Helper()
	current := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	global.now = func() time.Time { return current }
	t.Cleanup(func() {
		Reset()
		global.now = time.Now
	})
	return func(d time.Duration) { current = current.Add(d) }
}

func TestStartIsNoopWhenDisabled(t *testing.T) {
	fakeNow(t)
	Start("ignored").Stop()

	var buf bytes.Buffer
	Summarize(&buf)
	assert.Empty(t, buf.String())
	assert.False(t, Enabled())
}

func TestSummarizeNestsSpans(t *testing.T) {
	advance := fakeNow(t)
	Enable()
	assert.True(t, Enabled())

	outer := Start("hook.conflict-check")
	advance(2 * time.Millisecond)
	inner := Start("project.open")
	advance(6 * time.Millisecond)
	inner.Stop()
	check := Start("conflict.check")
	advance(2 * time.Millisecond)
	check.Stop()
	outer.Stop()

	var buf bytes.Buffer
	Summarize(&buf)
	out := buf.String()

	assert.Contains(t, out, "timing (total 10ms)")
	assert.Contains(t, out, "  hook.conflict-check 10ms (100.0%)")
	assert.Contains(t, out, "    project.open 6ms (60.0%)")
	assert.Contains(t, out, "    conflict.check 2ms (20.0%)")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("project.open")), bytes.Index(buf.Bytes(), []byte("conflict.check")))
}

func TestStopPopsUnclosedChildren(t *testing.T) {
	advance := fakeNow(t)
	Enable()

	outer := Start("outer")
	Start("leaked")
	advance(time.Millisecond)
	outer.Stop()

	Start("sibling").Stop()

	var buf bytes.Buffer
	Summarize(&buf)
	assert.Contains(t, buf.String(), "\n  sibling ")
}
