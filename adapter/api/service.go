// Package api serves the signed-in profile's tasks as a JSON HTTP API.
package api

import (
	"context"

	"github.com/google/uuid"

	internalApp "github.com/felixgeelhaar/lakron/internal/app"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/commands"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// Status describes the task collection behind the API.
type Status struct {
	Profile      string `json:"profile"`
	State        string `json:"state"`
	Size         int    `json:"size"`
	Subscription string `json:"subscription"`
	Retries      int    `json:"retries"`
}

// TaskService is what the handlers need from the workspace.
type TaskService interface {
	Today(ctx context.Context, query string) ([]domain.Task, error)
	Day(ctx context.Context, date, query string) ([]domain.Task, error)
	Upcoming(ctx context.Context, days int) ([]queries.DayGroup, error)
	Add(ctx context.Context, cmd commands.AddTaskCommand) (domain.Task, error)
	Toggle(ctx context.Context, id uuid.UUID) (domain.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Status(ctx context.Context) (Status, error)
	Refresh(ctx context.Context) (Status, error)
}

// WorkspaceFunc returns the workspace requests act on.
type WorkspaceFunc func(ctx context.Context) (*internalApp.Workspace, error)

// WorkspaceService implements TaskService over a workspace.
type WorkspaceService struct {
	workspace WorkspaceFunc
}

// NewWorkspaceService creates a TaskService backed by workspace.
func NewWorkspaceService(workspace WorkspaceFunc) *WorkspaceService {
	return &WorkspaceService{workspace: workspace}
}

var _ TaskService = (*WorkspaceService)(nil)

func (s *WorkspaceService) Today(ctx context.Context, query string) ([]domain.Task, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Calendar.Today(query), nil
}

func (s *WorkspaceService) Day(ctx context.Context, date, query string) ([]domain.Task, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Calendar.Day(ctx, date, query)
}

func (s *WorkspaceService) Upcoming(ctx context.Context, days int) ([]queries.DayGroup, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Calendar.Upcoming(ctx, days)
}

func (s *WorkspaceService) Add(ctx context.Context, cmd commands.AddTaskCommand) (domain.Task, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	return ws.AddTask.Handle(ctx, cmd)
}

func (s *WorkspaceService) Toggle(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	return ws.ToggleTask.Handle(ctx, id)
}

func (s *WorkspaceService) Delete(ctx context.Context, id uuid.UUID) error {
	ws, err := s.workspace(ctx)
	if err != nil {
		return err
	}
	return ws.DeleteTask.Handle(ctx, id)
}

func (s *WorkspaceService) Status(ctx context.Context) (Status, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return Status{}, err
	}
	st := ws.Engine.Status()
	return Status{
		Profile:      ws.Session.Name,
		State:        st.State.String(),
		Size:         st.Size,
		Subscription: st.Subscription.String(),
		Retries:      st.Retries,
	}, nil
}

// Refresh reloads the collection from the store and reports the result.
func (s *WorkspaceService) Refresh(ctx context.Context) (Status, error) {
	ws, err := s.workspace(ctx)
	if err != nil {
		return Status{}, err
	}
	if err := ws.Engine.Refresh(ctx); err != nil {
		return Status{}, err
	}
	return s.Status(ctx)
}
