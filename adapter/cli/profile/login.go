package profile

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with a profile password",
	Long: `Sign in to the profile whose password matches. The session is stored
on this machine until logout.

Examples:
  lakron profile login
  echo 'correct horse' | lakron profile login`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		pw, err := readPassword(cmd)
		if err != nil {
			return err
		}

		sess, err := app.Container.Auth.Authenticate(cmd.Context(), pw)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := app.Container.Sessions.Save(sess); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		app.ResetWorkspace()

		fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Name)
		return nil
	},
}
