package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
)

const jsonMimeType = "application/json"

// RegisterResources exposes read-only views of the collection as MCP
// resources.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.Workspace == nil {
		return errors.New("workspace is required")
	}
	r := &resources{workspace: deps.Workspace}

	srv.Resource("lakron://tasks").
		Name("Tasks").
		Description("Every task of the signed-in profile, including recurring tasks not due today").
		MimeType(jsonMimeType).
		Handler(r.all)

	srv.Resource("lakron://tasks/today").
		Name("Today").
		Description("Tasks dated today and recurring tasks due today").
		MimeType(jsonMimeType).
		Handler(r.today)

	srv.Resource("lakron://tasks/upcoming").
		Name("Upcoming").
		Description("Tasks due over the next week, grouped by day").
		MimeType(jsonMimeType).
		Handler(r.upcoming)

	srv.Resource("lakron://status").
		Name("Status").
		Description("Collection size and live update status").
		MimeType(jsonMimeType).
		Handler(r.status)

	return nil
}

type resources struct {
	workspace WorkspaceFunc
}

func (r *resources) all(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContent, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := ws.Engine.All(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, tasks)
}

func (r *resources) today(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContent, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, ws.Calendar.Today(""))
}

func (r *resources) upcoming(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContent, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := ws.Calendar.Upcoming(ctx, 0)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, groups)
}

func (r *resources) status(ctx context.Context, uri string, _ map[string]string) (*mcp.ResourceContent, error) {
	ws, err := r.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, workspaceStatus(ws))
}

func jsonContent(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: jsonMimeType,
		Text:     string(data),
	}, nil
}
