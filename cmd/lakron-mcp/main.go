package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/lakron/internal/app"
	mcpinternal "github.com/felixgeelhaar/lakron/internal/mcp"
	"github.com/felixgeelhaar/lakron/pkg/config"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := observability.LoggerFromEnv("info")

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	ws, err := container.CurrentWorkspace(ctx)
	if err != nil {
		logger.Error("failed to open workspace", "error", err)
		os.Exit(1)
	}
	defer ws.Close()

	workspace := func(context.Context) (*app.Workspace, error) { return ws, nil }
	if err := mcpinternal.Serve(ctx, cfg, workspace, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
