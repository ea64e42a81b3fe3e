package cmd

import (
	"context"
	"fmt"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/pkg/hooks"
	"github.com/grovetools/coord/pkg/project"
	"github.com/spf13/cobra"
)

// NewHookCmd creates the `hook` command group. Each subcommand reads the
// host payload from stdin and exits 0 unless an edit must be blocked.
func NewHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Run an agent host hook (payload on stdin)",
	}
	for _, h := range hooks.All() {
		cmd.AddCommand(newHookRunCmd(h))
	}
	return cmd
}

func newHookRunCmd(h hooks.Hook) *cobra.Command {
	return &cobra.Command{
		Use:   h.Name,
		Short: fmt.Sprintf("%s [%s]", h.Short, h.Event),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cli.GetOptions(cmd)
			r := hooks.NewRunner(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			r.Open = func(ctx context.Context, opts project.Options) (*project.Project, error) {
				fromFlags := flags.ProjectOptions(opts.Component)
				if fromFlags.Dir != "" {
					opts.Dir = fromFlags.Dir
				}
				if fromFlags.SessionID != "" {
					opts.SessionID = fromFlags.SessionID
				}
				opts.ConfigFile = fromFlags.ConfigFile
				opts.LogLevel = fromFlags.LogLevel
				return project.Open(ctx, opts)
			}
			if code := r.Run(cmd.Context(), h.Name); code != 0 {
				return &ExitCodeError{Code: code}
			}
			return nil
		},
	}
}
