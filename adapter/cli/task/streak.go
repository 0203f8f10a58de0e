package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var streakCmd = &cobra.Command{
	Use:   "streak [task-id]",
	Short: "Show the completion streak of a recurring task",
	Long: `Count the consecutive days, ending today, on which a recurring task
was completed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		all, err := ws.Engine.All(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}
		id, err := resolveID(args[0], all)
		if err != nil {
			return err
		}

		days, err := ws.Calendar.Streak(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to compute streak: %w", err)
		}

		unit := "days"
		if days == 1 {
			unit = "day"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Streak: %d %s\n", days, unit)
		return nil
	},
}
