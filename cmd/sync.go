package cmd

import (
	"fmt"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/pkg/sessions"
	"github.com/grovetools/coord/pkg/syncmon"
	"github.com/spf13/cobra"
)

// NewSyncCmd creates the `sync` command.
func NewSyncCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Compare the current branch with its remote tracking branch",
		Long: `Fetches the remote and reports commits behind and ahead, breaking
changes, dependency manifest changes and changes to core/shared paths.

Checks are throttled by sync.ttl; --force checks immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "sync")
			if err != nil {
				return err
			}
			defer p.Close()

			res, ran, err := p.Sync.RunIfDue(cmd.Context(), force)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			jsonOut := cli.GetOptions(cmd).JSONOutput

			if !ran {
				last := p.Sync.LastCheck(cmd.Context())
				if jsonOut {
					return cli.WriteJSON(out, last)
				}
				if last != nil && last.Result != nil {
					age := p.Context.Clock().Sub(last.Timestamp)
					fmt.Fprintf(out, "Last checked %s ago (%d behind, %d ahead). Use --force to check now.\n",
						sessions.FormatAge(age), last.Result.Behind, last.Result.Ahead)
				}
				return nil
			}

			if jsonOut {
				return cli.WriteJSON(out, res)
			}
			s := cli.NewStyles(out)
			switch {
			case res.Skipped():
				fmt.Fprintf(out, "%s %s\n", s.Muted.Render("Skipped:"), res.Reason)
			case syncmon.BuildSyncReport(res) == "":
				fmt.Fprintf(out, "%s %s is up to date with %s\n", s.Success.Render("OK"), res.Branch, res.TrackingBranch)
			default:
				fmt.Fprintln(out, syncmon.BuildSyncReport(res))
			}
			if res.FetchFailed {
				fmt.Fprintln(out, s.Warning.Render("Fetch failed; compared against the last fetched refs."))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Ignore the sync TTL")
	return cmd
}
