package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle [task-id]",
	Short: "Mark a task done or not done for today",
	Long: `Flip today's completion of a task. Recurring tasks are completed per
day; only tasks due today can be toggled.

Examples:
  lakron task toggle 550e8400
  lakron task toggle 550e8400-e29b-41d4-a716-446655440000`,
	Aliases: []string{"done"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		id, err := resolveID(args[0], ws.Engine.Snapshot())
		if err != nil {
			return err
		}

		task, err := ws.ToggleTask.Handle(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("failed to toggle task: %w", err)
		}

		if task.Completed {
			fmt.Fprintf(cmd.OutOrStdout(), "Done: %s\n", task.Title)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Not done: %s\n", task.Title)
		}
		return nil
	},
}
