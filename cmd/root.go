// Package cmd holds the coord command tree.
package cmd

import (
	"fmt"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/pkg/profiling"
	"github.com/grovetools/coord/starship"
	"github.com/grovetools/coord/version"
	"github.com/spf13/cobra"
)

// ExitCodeError asks main to exit with Code without printing anything.
type ExitCodeError struct {
	Code int
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCmd assembles the coord command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"coord",
		"Coordinate concurrent agent sessions working in one repository",
	)
	root.Long = `coord tracks which files each agent session is editing, warns when
another session or the remote branch touches the same file, and reports
what has changed upstream since the last pull.

Hook commands are meant to be wired into the agent host:
  PreToolUse        coord hook conflict-check
  PostToolUse       coord hook track
  UserPromptSubmit  coord hook sync-check
  SessionStart      coord hook session-start
  SessionEnd        coord hook session-end`
	cli.SetVersionTemplate(root, version.GetInfo())

	profiler := profiling.NewCobraProfiler(nil)
	profiler.AddFlags(root)
	root.PersistentPreRunE = profiler.PreRun
	root.PersistentPostRun = profiler.PostRun

	root.AddCommand(
		NewSessionCmd(),
		NewHookCmd(),
		NewConflictsCmd(),
		NewSyncCmd(),
		NewWipCmd(),
		NewConfigCmd(),
		NewPathsCmd(),
		NewLogsCmd(),
		starship.NewStarshipCmd("coord"),
		cli.NewVersionCommand("coord", version.GetInfo()),
	)
	return root
}
