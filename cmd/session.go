package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/pkg/sessions"
	"github.com/spf13/cobra"
)

// NewSessionCmd creates the `session` command group.
func NewSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Register, inspect and clean up agent sessions",
	}
	cmd.AddCommand(
		newSessionRegisterCmd(),
		newSessionHeartbeatCmd(),
		newSessionEndCmd(),
		newSessionListCmd(),
		newSessionStatusCmd(),
		newSessionCleanupCmd(),
	)
	return cmd
}

func newSessionRegisterCmd() *cobra.Command {
	var workingOn string
	var force bool
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "session")
			if err != nil {
				return err
			}
			defer p.Close()

			opts := sessions.RegisterOptions{Force: force}
			if cmd.Flags().Changed("working-on") {
				opts.WorkingOn = &workingOn
			}
			rec, err := p.Sessions.Register(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.WriteJSON(cmd.OutOrStdout(), rec)
			}
			s := cli.NewStyles(cmd.OutOrStdout())
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", s.Success.Render("Session registered:"), rec.SessionID)
			fmt.Fprintf(cmd.OutOrStdout(), "  Developer: %s@%s\n", rec.Developer, rec.Hostname)
			fmt.Fprintf(cmd.OutOrStdout(), "  Branch:    %s\n", rec.Branch)
			return nil
		},
	}
	cmd.Flags().StringVar(&workingOn, "working-on", "", "Short description of the task")
	cmd.Flags().BoolVar(&force, "force", false, "Replace a live record with the same id")
	return cmd
}

func newSessionHeartbeatCmd() *cobra.Command {
	var workingOn string
	cmd := &cobra.Command{
		Use:   "heartbeat",
		Short: "Refresh the current session's heartbeat",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "session")
			if err != nil {
				return err
			}
			defer p.Close()

			var upd sessions.Updates
			if cmd.Flags().Changed("working-on") {
				upd.WorkingOn = &workingOn
			}
			rec, err := p.Sessions.Heartbeat(cmd.Context(), upd)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.WriteJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Heartbeat sent for %s\n", rec.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVar(&workingOn, "working-on", "", "Short description of the task (empty clears it)")
	return cmd
}

func newSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "session")
			if err != nil {
				return err
			}
			defer p.Close()

			rec, err := p.Sessions.End(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.WriteJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session ended: %s\n", rec.SessionID)
			return nil
		},
	}
}

func newSessionListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "session")
			if err != nil {
				return err
			}
			defer p.Close()

			entries, err := p.Sessions.List(cmd.Context(), all)
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				if entries == nil {
					entries = []sessions.Entry{}
				}
				return cli.WriteJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active sessions.")
				return nil
			}
			summaries := make([]sessions.Summary, 0, len(entries))
			for _, e := range entries {
				summaries = append(summaries, p.Sessions.Summarize(e, e.Record.SessionID == p.Context.SessionID))
			}
			printSessionTable(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include stale, zombie and ended sessions")
	return cmd
}

func newSessionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session and other live sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "session")
			if err != nil {
				return err
			}
			defer p.Close()

			st, err := p.Sessions.Status(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.WriteJSON(cmd.OutOrStdout(), st)
			}

			out := cmd.OutOrStdout()
			s := cli.NewStyles(out)
			if cur := currentSummary(st); cur != nil {
				fmt.Fprintln(out, s.Header.Render("Current session"))
				fmt.Fprintf(out, "  ID:      %s\n", cur.SessionID)
				fmt.Fprintf(out, "  Status:  %s\n", s.Class(cur.Classification))
				fmt.Fprintf(out, "  Age:     %s\n", cur.AgeHuman)
				fmt.Fprintf(out, "  Branch:  %s\n", cur.Branch)
				fmt.Fprintf(out, "  Files:   %d\n", cur.FileCount)
			} else {
				fmt.Fprintln(out, "No active session. Run 'coord session register' to start.")
			}
			if len(st.Sessions) > 0 {
				fmt.Fprintln(out)
				printSessionTable(out, st.Sessions)
			}
			fmt.Fprintf(out, "Total: %d active, %d stale\n", st.Active, st.Stale)
			return nil
		},
	}
}

func newSessionCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove zombie, ended and corrupt records",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "session")
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := p.Sessions.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				return cli.WriteJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleanup complete:")
			fmt.Fprintf(cmd.OutOrStdout(), "  Sessions removed:    %d\n", res.Sessions)
			fmt.Fprintf(cmd.OutOrStdout(), "  WIP entries removed: %d\n", res.Wip)
			return nil
		},
	}
}

func printSessionTable(w io.Writer, summaries []sessions.Summary) {
	s := cli.NewStyles(w)
	rows := make([][]string, 0, len(summaries))
	for _, sum := range summaries {
		id := sum.SessionID
		if sum.Current {
			id += " *"
		}
		rows = append(rows, []string{
			id,
			sum.Developer + "@" + sum.Hostname,
			sum.Branch,
			s.Class(sum.Classification),
			sum.AgeHuman,
			strconv.Itoa(sum.FileCount),
			orDash(sum.WorkingOn),
		})
	}
	fmt.Fprintln(w, s.Table([]string{"SESSION", "DEVELOPER", "BRANCH", "STATE", "AGE", "FILES", "WORKING ON"}, rows))
}

func currentSummary(st *sessions.Status) *sessions.Summary {
	for i := range st.Sessions {
		if st.Sessions[i].Current {
			return &st.Sessions[i]
		}
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
