package task

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow today's tasks as they change",
	Long: `Print today's tasks and print them again whenever they change. Stop
with Ctrl-C.

Changes made by other processes only show up with a shared change feed:
set LAKRON_CHANGEFEED to postgres, redis or rabbitmq. The default local
feed only carries changes made by this process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := cli.CurrentWorkspace(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		updates := make(chan []domain.Task, 1)
		stop := ws.Engine.OnChange(func(tasks []domain.Task) {
			select {
			case updates <- tasks:
			default:
				// Drop the stale snapshot so the newest one is printed.
				select {
				case <-updates:
				default:
				}
				updates <- tasks
			}
		})
		defer stop()

		render := func() {
			fmt.Fprintln(out, cli.Header(fmt.Sprintf("Today (%s)", time.Now().Format("15:04:05"))))
			printTasks(out, ws.Calendar.Today(""))
			fmt.Fprintln(out)
		}
		render()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-updates:
				render()
			}
		}
	},
}
