package profile

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		app.ResetWorkspace()
		if err := app.Container.Sessions.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}
