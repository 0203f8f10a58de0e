package profile

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	identityDomain "github.com/felixgeelhaar/lakron/internal/identity/domain"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in profile",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		sess, err := app.Container.Sessions.Load()
		if errors.Is(err, identityDomain.ErrNoSession) {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "%s\n", sess.Name)
		if cli.Verbose() {
			fmt.Fprintf(out, "  Profile ID: %s\n", sess.ProfileID)
			fmt.Fprintf(out, "  Session:    %s\n", app.Container.Sessions.Path())
		}
		return nil
	},
}
