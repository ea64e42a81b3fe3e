package cmd

import (
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/grovetools/coord/cli"
	"github.com/grovetools/coord/pkg/models"
	"github.com/grovetools/coord/pkg/sessions"
	"github.com/grovetools/coord/pkg/wip"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewWipCmd creates the `wip` command group.
func NewWipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wip",
		Short: "Inspect work-in-progress records",
	}
	cmd.AddCommand(newWipListCmd(), newWipWatchCmd())
	return cmd
}

func newWipListCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the files each session is working on",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.OpenProject(cmd.Context(), cmd, "wip")
			if err != nil {
				return err
			}
			defer p.Close()

			records, err := p.WIP().List(cmd.Context(), all)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cli.GetOptions(cmd).JSONOutput {
				if records == nil {
					records = []*models.WipRecord{}
				}
				return cli.WriteJSON(out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No work in progress.")
				return nil
			}

			now := p.Context.Clock()
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.SessionID,
					rec.Developer + "@" + rec.Hostname,
					sessions.FormatAge(rec.Age(now)),
					fileList(rec, 3),
				})
			}
			fmt.Fprintln(out, cli.NewStyles(out).Table([]string{"SESSION", "DEVELOPER", "IDLE", "FILES"}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include stale records")
	return cmd
}

func newWipWatchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream changes to work-in-progress records until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			p, err := cli.OpenProject(ctx, cmd, "wip")
			if err != nil {
				return err
			}
			defer p.Close()

			w, err := wip.NewWatcher(p.WIP(), debounce)
			if err != nil {
				return err
			}
			defer w.Close()

			out := cmd.OutOrStdout()
			events := cli.NewEventLogger(out, cli.GetOptions(cmd).JSONOutput)

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", p.Context.BucketDir("wip"))
			err = w.Run(ctx, func(ev wip.Event) {
				fields := logrus.Fields{"event": string(ev.Kind), "session": ev.SessionID}
				if ev.Record != nil {
					fields["developer"] = ev.Record.Developer
					fields["files"] = fileList(ev.Record, 5)
				}
				events.WithFields(fields).Info("wip " + string(ev.Kind))
			})
			if err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "Collapse bursts of changes within this window")
	return cmd
}

// fileList renders the most recently touched files of rec, at most max.
func fileList(rec *models.WipRecord, max int) string {
	keys := make([]string, 0, len(rec.Files))
	for k, f := range rec.Files {
		if f != nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := rec.Files[keys[i]], rec.Files[keys[j]]
		if !a.LastAccess.Equal(b.LastAccess) {
			return a.LastAccess.After(b.LastAccess)
		}
		return keys[i] < keys[j]
	})
	if len(keys) <= max {
		return strings.Join(keys, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(keys[:max], ", "), len(keys)-max)
}
