package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers prompts for the daily routine.
func RegisterPrompts(srv *mcp.Server) error {
	if srv == nil {
		return errors.New("server is required")
	}

	srv.Prompt("daily_review").
		Description("Walk through today's tasks and mark what is done.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Daily review", `Help me review my day.

1. Read lakron://tasks/today for what is due today.
2. Ask me which of the open ones I finished and mark them with task.toggle.
3. For anything left open, suggest whether to keep it for tomorrow.

Recurring tasks only count as done for the day they were toggled.`), nil
		})

	srv.Prompt("plan_week").
		Description("Look ahead at the coming week and add what is missing.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return userPrompt("Week planning", `Help me plan the coming week.

1. Read lakron://tasks/upcoming for the next seven days.
2. Point out days that look overloaded or empty.
3. Offer to add tasks or events with task.add. Dates use YYYY-MM-DD and
   times HH:MM.`), nil
		})

	return nil
}

func userPrompt(description, text string) *mcp.PromptResult {
	return &mcp.PromptResult{
		Description: description,
		Messages: []mcp.PromptMessage{
			{
				Role: string(mcp.RoleUser),
				Content: mcp.TextContent{
					Type: "text",
					Text: text,
				},
			},
		},
	}
}
