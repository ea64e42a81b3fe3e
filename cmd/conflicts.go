package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/errors"
	"github.com/grovetools/coord/pkg/conflict"
	"github.com/spf13/cobra"
)

// NewConflictsCmd creates the `conflicts` command group.
func NewConflictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conflicts",
		Short: "Inspect edit conflicts",
	}
	cmd.AddCommand(newConflictsCheckCmd())
	return cmd
}

func newConflictsCheckCmd() *cobra.Command {
	var op, mode string
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Check a file for conflicts the way the conflict-check hook does",
		Long: `Checks whether editing <path> would collide with another live session,
with unpulled remote commits, or with local uncommitted changes.

Exits 2 when the mode is block and the conflict is critical.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Relative paths name files from the caller's directory, not the
			// project root.
			target, err := filepath.Abs(args[0])
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid path")
			}
			operation := conflict.Operation(op)
			if operation != conflict.OpEdit && operation != conflict.OpWrite {
				return errors.New(errors.ErrCodeInvalidInput, "--op must be edit or write").WithDetail("op", op)
			}

			p, err := cli.OpenProject(cmd.Context(), cmd, "conflicts")
			if err != nil {
				return err
			}
			defer p.Close()

			m := p.Mode()
			if cmd.Flags().Changed("mode") {
				parsed, ok := conflict.ParseMode(mode)
				if !ok {
					return errors.New(errors.ErrCodeInvalidInput, "--mode must be warn, block or skip").WithDetail("mode", mode)
				}
				m = parsed
			}

			report := p.Conflicts.Check(cmd.Context(), target, operation, m)
			out := cmd.OutOrStdout()
			switch {
			case cli.GetOptions(cmd).JSONOutput:
				if err := cli.WriteJSON(out, report); err != nil {
					return err
				}
			case report == nil:
				fmt.Fprintf(out, "No conflicts for %s\n", args[0])
			default:
				s := cli.NewStyles(out)
				fmt.Fprintf(out, "Severity: %s\n\n%s", s.Severity(report.Severity), report.Text())
			}

			if code := report.ExitCode(); code != 0 {
				return &ExitCodeError{Code: code}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&op, "op", string(conflict.OpEdit), "Operation to check: edit or write")
	cmd.Flags().StringVar(&mode, "mode", "", "Override the configured mode: warn, block or skip")
	return cmd
}
