// Package mcp exposes the signed-in profile's tasks as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/google/uuid"

	internalApp "github.com/felixgeelhaar/lakron/internal/app"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/commands"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// WorkspaceFunc returns the workspace tools act on.
type WorkspaceFunc func(ctx context.Context) (*internalApp.Workspace, error)

// ToolDependencies provides the workspace for MCP tools.
type ToolDependencies struct {
	Workspace WorkspaceFunc
}

type taskTodayInput struct {
	Search string `json:"search,omitempty"`
}

type taskAddInput struct {
	Title          string `json:"title" jsonschema:"required"`
	Description    string `json:"description,omitempty"`
	Date           string `json:"date,omitempty"`
	Time           string `json:"time,omitempty"`
	Type           string `json:"type,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Recurring      bool   `json:"recurring,omitempty"`
	RecurrenceRule string `json:"recurrence_rule,omitempty"`
}

type taskIDInput struct {
	TaskID string `json:"task_id" jsonschema:"required"`
}

type taskUpcomingInput struct {
	Days int `json:"days,omitempty"`
}

type statusOutput struct {
	Profile      string `json:"profile"`
	State        string `json:"state"`
	Size         int    `json:"size"`
	Subscription string `json:"subscription"`
	Retries      int    `json:"retries"`
}

type tools struct {
	workspace WorkspaceFunc
	now       func() time.Time
}

// RegisterTools registers the task tools on srv.
func RegisterTools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.Workspace == nil {
		return errors.New("workspace is required")
	}
	t := &tools{workspace: deps.Workspace, now: time.Now}

	srv.Tool("task.today").
		Description("List today's tasks: tasks dated today and recurring tasks due today").
		Handler(t.today)

	srv.Tool("task.add").
		Description("Add a task or event. Recurring tasks need recurrence_rule (daily, weekly, monthly, yearly)").
		Handler(t.add)

	srv.Tool("task.toggle").
		Description("Mark a task done or not done for today").
		Handler(t.toggle)

	srv.Tool("task.upcoming").
		Description("List the tasks due on each of the next days, starting tomorrow").
		Handler(t.upcoming)

	srv.Tool("task.delete").
		Description("Delete a task").
		Handler(t.delete)

	srv.Tool("task.status").
		Description("Show the task collection and live update status").
		Handler(t.status)

	return nil
}

func (t *tools) today(ctx context.Context, input taskTodayInput) ([]domain.Task, error) {
	ws, err := t.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Calendar.Today(input.Search), nil
}

func (t *tools) add(ctx context.Context, input taskAddInput) (domain.Task, error) {
	ws, err := t.workspace(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	if input.Title == "" {
		return domain.Task{}, errors.New("title is required")
	}

	date := input.Date
	if date == "" {
		date = t.now().Format(domain.DateLayout)
	}
	return ws.AddTask.Handle(ctx, commands.AddTaskCommand{
		Title:          input.Title,
		Description:    input.Description,
		Date:           date,
		Time:           input.Time,
		Kind:           input.Type,
		Priority:       input.Priority,
		Recurring:      input.Recurring,
		RecurrenceRule: input.RecurrenceRule,
	})
}

func (t *tools) toggle(ctx context.Context, input taskIDInput) (domain.Task, error) {
	ws, err := t.workspace(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	id, err := parseUUID(input.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	return ws.ToggleTask.Handle(ctx, id)
}

func (t *tools) upcoming(ctx context.Context, input taskUpcomingInput) ([]queries.DayGroup, error) {
	ws, err := t.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Calendar.Upcoming(ctx, input.Days)
}

func (t *tools) delete(ctx context.Context, input taskIDInput) (map[string]any, error) {
	ws, err := t.workspace(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseUUID(input.TaskID)
	if err != nil {
		return nil, err
	}
	if err := ws.DeleteTask.Handle(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{"task_id": id, "deleted": true}, nil
}

func (t *tools) status(ctx context.Context, _ struct{}) (statusOutput, error) {
	ws, err := t.workspace(ctx)
	if err != nil {
		return statusOutput{}, err
	}
	return workspaceStatus(ws), nil
}

func workspaceStatus(ws *internalApp.Workspace) statusOutput {
	s := ws.Engine.Status()
	return statusOutput{
		Profile:      ws.Session.Name,
		State:        s.State.String(),
		Size:         s.Size,
		Subscription: s.Subscription.String(),
		Retries:      s.Retries,
	}
}

func parseUUID(value string) (uuid.UUID, error) {
	if value == "" {
		return uuid.UUID{}, errors.New("id is required")
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("invalid id: %w", err)
	}
	return id, nil
}
