package profile

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a profile and sign in to it",
	Long: `Create a new profile. Names must be unique and passwords at least
8 characters long. The new profile becomes the active session.

Examples:
  lakron profile create ada
  lakron profile create ada --password 'correct horse'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		sess, err := app.Container.Auth.CreateProfile(ctx, args[0], pw)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
		if err := app.Container.Sessions.Save(sess); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		app.ResetWorkspace()

		fmt.Fprintf(cmd.OutOrStdout(), "Profile created: %s\n", sess.Name)
		return nil
	},
}
