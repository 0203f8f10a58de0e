package commands

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// AddTaskCommand contains the data needed to create a task.
type AddTaskCommand struct {
	Title          string
	Description    string
	Date           string
	Time           string
	Kind           string
	Priority       string
	Recurring      bool
	RecurrenceRule string
}

// AddTaskHandler handles the AddTaskCommand.
type AddTaskHandler struct {
	engine  TaskEngine
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewAddTaskHandler creates a new AddTaskHandler.
func NewAddTaskHandler(engine TaskEngine, logger *slog.Logger, metrics observability.Metrics) *AddTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &AddTaskHandler{engine: engine, logger: logger, metrics: metrics}
}

// Handle validates the command, applies creation defaults and stores the task.
// Priority defaults to medium and kind to task. A recurring task needs a
// rule; a non-recurring task drops any rule given.
func (h *AddTaskHandler) Handle(ctx context.Context, cmd AddTaskCommand) (domain.Task, error) {
	task, err := BuildTask(cmd)
	if err != nil {
		return domain.Task{}, err
	}

	return observability.TimeOperationResult(h.logger, h.metrics, "task.add", func() (domain.Task, error) {
		return h.engine.Add(ctx, task)
	})
}

// BuildTask turns a command into an unsaved task without storing it.
func BuildTask(cmd AddTaskCommand) (domain.Task, error) {
	task, err := domain.NewTask(uuid.Nil, cmd.Title, cmd.Date)
	if err != nil {
		return domain.Task{}, err
	}
	task.Description = strings.TrimSpace(cmd.Description)

	if err := task.SetTime(cmd.Time); err != nil {
		return domain.Task{}, err
	}
	if err := task.SetKind(domain.Kind(strings.ToLower(strings.TrimSpace(cmd.Kind)))); err != nil {
		return domain.Task{}, err
	}
	priority, err := domain.ParsePriority(cmd.Priority)
	if err != nil {
		return domain.Task{}, err
	}
	if err := task.SetPriority(priority); err != nil {
		return domain.Task{}, err
	}

	if cmd.Recurring {
		if strings.TrimSpace(cmd.RecurrenceRule) == "" {
			return domain.Task{}, domain.ErrMissingRule
		}
		task.SetRecurrence(cmd.RecurrenceRule)
	}
	return task, nil
}
