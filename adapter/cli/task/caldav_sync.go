package task

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var syncDeleteMissing bool

var caldavSyncCmd = &cobra.Command{
	Use:   "caldav-sync",
	Short: "Push every task to a CalDAV calendar",
	Long: `Write every task to the CalDAV calendar configured with CALDAV_URL,
CALDAV_USERNAME and CALDAV_PASSWORD. With --delete-missing, events that
lakron created earlier for tasks that no longer exist are removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		syncer := app.Container.CalDAVSyncer()
		if syncer == nil {
			return errors.New("CalDAV is not configured - set CALDAV_URL")
		}

		ws, err := app.Workspace(cmd.Context())
		if err != nil {
			return err
		}
		tasks, err := ws.Engine.All(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}

		result, err := syncer.WithDeleteMissing(syncDeleteMissing).Sync(cmd.Context(), tasks, time.Now())
		if err != nil {
			return fmt.Errorf("caldav sync failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Synced %d tasks: %d created, %d updated, %d deleted\n",
			len(tasks), result.Created, result.Updated, result.Deleted)
		if result.Failed > 0 {
			fmt.Fprintln(out, cli.Failure(fmt.Sprintf("%d tasks failed to sync", result.Failed)))
		}
		return nil
	},
}

func init() {
	caldavSyncCmd.Flags().BoolVar(&syncDeleteMissing, "delete-missing", false, "remove events for deleted tasks")
}
