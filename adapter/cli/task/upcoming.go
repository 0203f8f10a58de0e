package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
)

var upcomingDays int

var upcomingCmd = &cobra.Command{
	Use:   "upcoming",
	Short: "Show the tasks of the coming days",
	Long: `Show the tasks due on each of the next days, starting tomorrow.
Days with nothing due are skipped.

Examples:
  lakron task upcoming
  lakron task upcoming --days 14`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		groups, err := ws.Calendar.Upcoming(cmd.Context(), upcomingDays)
		if err != nil {
			return fmt.Errorf("failed to load upcoming tasks: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(groups) == 0 {
			fmt.Fprintln(out, "Nothing coming up.")
			return nil
		}
		for _, g := range groups {
			fmt.Fprintln(out, cli.Header(fmt.Sprintf("%s (%s)", g.Date, inDays(g.DaysFromNow))))
			printTasks(out, g.Tasks)
			fmt.Fprintln(out)
		}
		return nil
	},
}

func inDays(n int) string {
	if n == 1 {
		return "tomorrow"
	}
	return fmt.Sprintf("in %d days", n)
}

func init() {
	upcomingCmd.Flags().IntVarP(&upcomingDays, "days", "n", queries.DefaultUpcomingDays, "number of days to look ahead")
}
