package mcp

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	mcpinternal "github.com/felixgeelhaar/lakron/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for the signed-in profile",
	Long: `Start an MCP server on MCP_ADDR exposing the signed-in profile's tasks.
Set MCP_AUTH_TOKEN to require a bearer token.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}

		// Fail early when nobody is signed in.
		if _, err := app.Workspace(ctx); err != nil {
			return err
		}

		err = mcpinternal.Serve(ctx, app.Container.Config, app.Workspace, cli.Logger())
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
