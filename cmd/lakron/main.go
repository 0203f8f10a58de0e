package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/adapter/cli/mcp"
	"github.com/felixgeelhaar/lakron/adapter/cli/profile"
	"github.com/felixgeelhaar/lakron/adapter/cli/serve"
	"github.com/felixgeelhaar/lakron/adapter/cli/task"
	"github.com/felixgeelhaar/lakron/internal/app"
	"github.com/felixgeelhaar/lakron/pkg/config"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.LoggerFromEnv(cfg.LogLevel)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}

	cliApp := cli.NewApp(container)
	cli.SetApp(cliApp)

	cli.AddCommand(profile.Cmd)
	cli.AddCommand(task.Cmd)
	cli.AddCommand(mcp.Cmd)
	cli.AddCommand(serve.Cmd)

	code := 0
	if err := cli.Run(ctx); err != nil {
		code = 1
	}
	cliApp.Close()
	container.Close()
	os.Exit(code)
}
