package task

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

var listSearch string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every task",
	Long: `List every task of the profile by date, including recurring tasks
that are not due today.

Examples:
  lakron task list
  lakron task list --search report`,
	Aliases: []string{"ls"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		tasks, err := ws.Engine.All(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}
		tasks = queries.Search(tasks, listSearch)

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}

		slices.SortStableFunc(tasks, func(a, b domain.Task) int {
			if c := cmp.Compare(a.Date, b.Date); c != 0 {
				return c
			}
			return cmp.Compare(a.Time, b.Time)
		})

		fmt.Fprintln(out, cli.Header(fmt.Sprintf("Tasks (%d)", len(tasks))))
		for _, t := range tasks {
			fmt.Fprintf(out, "%s  %s\n", cli.Muted(t.Date), FormatLine(t))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "only show tasks whose title contains this text")
}
