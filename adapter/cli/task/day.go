package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var daySearch string

var dayCmd = &cobra.Command{
	Use:   "day [date]",
	Short: "Show the tasks due on a day",
	Long: `Show the tasks dated on a day and the recurring tasks due that day.

Examples:
  lakron task day 2024-05-02`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		tasks, err := ws.Calendar.Day(cmd.Context(), args[0], daySearch)
		if err != nil {
			return fmt.Errorf("failed to load day: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintf(out, "Nothing due on %s.\n", args[0])
			return nil
		}
		fmt.Fprintln(out, cli.Header(args[0]))
		printTasks(out, tasks)
		return nil
	},
}

func init() {
	dayCmd.Flags().StringVarP(&daySearch, "search", "s", "", "only show tasks whose title contains this text")
}
