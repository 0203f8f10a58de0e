package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	internalApp "github.com/felixgeelhaar/lakron/internal/app"
	identityDomain "github.com/felixgeelhaar/lakron/internal/identity/domain"
)

// ErrNotInitialized is returned when a command needs the store but the
// container could not be built.
var ErrNotInitialized = errors.New("application not initialized - database connection required")

// App holds the CLI application dependencies.
type App struct {
	Container *internalApp.Container

	mu        sync.Mutex
	workspace *internalApp.Workspace
}

// NewApp creates a CLI app over container.
func NewApp(container *internalApp.Container) *App {
	return &App{Container: container}
}

// Workspace opens the signed-in profile's workspace on first use and returns
// the same one afterwards.
func (a *App) Workspace(ctx context.Context) (*internalApp.Workspace, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.workspace != nil {
		return a.workspace, nil
	}
	ws, err := a.Container.CurrentWorkspace(ctx)
	if errors.Is(err, identityDomain.ErrNoSession) {
		return nil, fmt.Errorf("%w - run `lakron profile login` first", err)
	}
	if err != nil {
		return nil, err
	}
	a.workspace = ws
	return ws, nil
}

// ResetWorkspace closes the open workspace, if any. The next call to
// Workspace reads the session again.
func (a *App) ResetWorkspace() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.workspace != nil {
		a.workspace.Close()
		a.workspace = nil
	}
}

// Close releases the workspace. The container is owned by the caller.
func (a *App) Close() {
	a.ResetWorkspace()
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}

// RequireApp returns the global app or ErrNotInitialized.
func RequireApp() (*App, error) {
	if app == nil || app.Container == nil {
		return nil, ErrNotInitialized
	}
	return app, nil
}

// CurrentWorkspace is a shortcut for RequireApp followed by Workspace.
func CurrentWorkspace(ctx context.Context) (*internalApp.Workspace, error) {
	a, err := RequireApp()
	if err != nil {
		return nil, err
	}
	return a.Workspace(ctx)
}
