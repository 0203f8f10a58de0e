package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var deleteCmd = &cobra.Command{
	Use:     "delete [task-id]",
	Short:   "Delete a task",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
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

		if err := ws.DeleteTask.Handle(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Task deleted: %s\n", id)
		return nil
	},
}
