// Package serve runs the HTTP API.
package serve

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/api"
	"github.com/felixgeelhaar/lakron/adapter/cli"
)

var addr string

// Cmd starts the HTTP API for the signed-in profile.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the signed-in profile's tasks over HTTP",
	Long: `Serve a JSON API for the signed-in profile's tasks on HTTP_ADDR.
Set LAKRON_API_TOKEN to require a bearer token on /api/v1.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		if _, err := app.Workspace(ctx); err != nil {
			return err
		}

		cfg := app.Container.Config
		listen := cfg.HTTPAddr
		if addr != "" {
			listen = addr
		}

		srv := api.NewServer(
			api.ServerConfig{Addr: listen, AuthToken: cfg.APIAuthToken},
			api.NewWorkspaceService(app.Workspace),
			app.Container.Health,
			cli.Logger(),
		)
		return srv.Run(ctx)
	},
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR)")
}
