package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// ToggleTaskHandler flips a task's completion for today.
type ToggleTaskHandler struct {
	engine  TaskEngine
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewToggleTaskHandler creates a new ToggleTaskHandler.
func NewToggleTaskHandler(engine TaskEngine, logger *slog.Logger, metrics observability.Metrics) *ToggleTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &ToggleTaskHandler{engine: engine, logger: logger, metrics: metrics}
}

// Handle toggles the task and returns its new state. Recurring tasks that are
// not due today fail with domain.ErrNotDue.
func (h *ToggleTaskHandler) Handle(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	return observability.TimeOperationResult(h.logger, h.metrics, "task.toggle", func() (domain.Task, error) {
		return h.engine.Toggle(ctx, id)
	})
}
