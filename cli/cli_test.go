package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/version"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardFlags(t *testing.T) {
	cmd := NewStandardCommand("coord", "test")
	require.NoError(t, cmd.ParseFlags([]string{"-v", "--json", "-C", "/tmp/p", "--session", "s-1", "-c", "x.yml"}))

	opts := GetOptions(cmd)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.JSONOutput)
	assert.Equal(t, "/tmp/p", opts.Dir)
	assert.Equal(t, "s-1", opts.SessionID)

	po := opts.ProjectOptions("cli")
	assert.Equal(t, "debug", po.LogLevel)
	assert.Equal(t, "x.yml", po.ConfigFile)
	assert.Equal(t, "cli", po.Component)
}

func TestErrorHandlerHints(t *testing.T) {
	var out bytes.Buffer
	h := NewErrorHandler(&out, false)

	err := h.Handle(errors.SessionExists("s-1"))
	assert.Error(t, err)
	assert.Contains(t, out.String(), "Error: ")
	assert.Contains(t, out.String(), "--force")
	assert.NotContains(t, out.String(), "Error details")

	out.Reset()
	h.Verbose = true
	h.Handle(errors.SessionNotFound("s-2"))
	assert.Contains(t, out.String(), "coord session register")
	assert.Contains(t, out.String(), `"code": "SESSION_NOT_FOUND"`)

	assert.NoError(t, h.Handle(nil))
}

func TestStylesPlainWhenNotATerminal(t *testing.T) {
	var out bytes.Buffer
	s := NewStyles(&out)

	assert.Equal(t, "active", s.Class(models.ClassActive))
	table := s.Table([]string{"SESSION", "STATE"}, [][]string{{"alice-1", "active"}, {"bob-2", "stale"}})
	assert.NotContains(t, table, "\x1b[")
	lines := strings.Split(table, "\n")
	require.GreaterOrEqual(t, len(lines), 5)
	assert.Contains(t, table, "SESSION")
	assert.Contains(t, table, "bob-2")
}

func TestVersionCommandJSON(t *testing.T) {
	root := NewStandardCommand("coord", "test")
	root.AddCommand(NewVersionCommand("coord", version.Info{Version: "1.2.3", Commit: "abc"}))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"version": "1.2.3"`)
}

func TestEventLogger(t *testing.T) {
	var buf bytes.Buffer
	NewEventLogger(&buf, true).WithField("session", "alice-1").Info("wip updated")
	assert.Contains(t, buf.String(), `"session":"alice-1"`)
	assert.Contains(t, buf.String(), `"msg":"wip updated"`)

	buf.Reset()
	quiet := NewEventLogger(&buf, false, WithLevel(logrus.WarnLevel))
	quiet.Info("hidden")
	quiet.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}
