package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// DeleteTaskHandler removes a task.
type DeleteTaskHandler struct {
	engine  TaskEngine
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewDeleteTaskHandler creates a new DeleteTaskHandler.
func NewDeleteTaskHandler(engine TaskEngine, logger *slog.Logger, metrics observability.Metrics) *DeleteTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &DeleteTaskHandler{engine: engine, logger: logger, metrics: metrics}
}

// Handle deletes the task with id.
func (h *DeleteTaskHandler) Handle(ctx context.Context, id uuid.UUID) error {
	_, err := observability.TimeOperationResult(h.logger, h.metrics, "task.delete", func() (struct{}, error) {
		return struct{}{}, h.engine.Delete(ctx, id)
	})
	return err
}
