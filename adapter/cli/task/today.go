package task

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var (
	todaySearch  string
	todayRefresh bool
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's tasks",
	Long: `Show the tasks dated today and the recurring tasks due today.
With --refresh the list is reloaded from the store first.

Examples:
  lakron task today
  lakron task today --search gym
  lakron task today --refresh`,
	Aliases: []string{"ls-today"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		if todayRefresh {
			if err := ws.Engine.Refresh(cmd.Context()); err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		tasks := ws.Calendar.Today(todaySearch)
		if len(tasks) == 0 {
			fmt.Fprintln(out, "Nothing due today.")
			return nil
		}

		done := 0
		for _, t := range tasks {
			if t.Completed {
				done++
			}
		}

		fmt.Fprintln(out, cli.Header(fmt.Sprintf("Today, %s (%d/%d done)", time.Now().Format("Mon Jan 2"), done, len(tasks))))
		printTasks(out, tasks)
		return nil
	},
}

func init() {
	todayCmd.Flags().StringVarP(&todaySearch, "search", "s", "", "only show tasks whose title contains this text")
	todayCmd.Flags().BoolVar(&todayRefresh, "refresh", false, "reload tasks from the store before showing them")
}
