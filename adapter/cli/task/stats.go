package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's counters and the sync status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		stats, err := ws.Calendar.Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load stats: %w", err)
		}
		status := ws.Engine.Status()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, cli.Header("Stats"))
		fmt.Fprintf(out, "Dated today:  %d\n", stats.Today)
		fmt.Fprintf(out, "Completed:    %d\n", stats.Completed)
		fmt.Fprintf(out, "Collection:   %d tasks (%s)\n", status.Size, status.State)
		fmt.Fprintf(out, "Live updates: %s", status.Subscription)
		if status.Retries > 0 {
			fmt.Fprintf(out, " after %d retries", status.Retries)
		}
		fmt.Fprintln(out)
		return nil
	},
}
