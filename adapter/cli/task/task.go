package task

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// Cmd is the task command group
var Cmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks and events",
	Long:  `Add, list, toggle and export the signed-in profile's tasks and events.`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(todayCmd)
	Cmd.AddCommand(dayCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(toggleCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(upcomingCmd)
	Cmd.AddCommand(calendarCmd)
	Cmd.AddCommand(statsCmd)
	Cmd.AddCommand(streakCmd)
	Cmd.AddCommand(watchCmd)
	Cmd.AddCommand(exportCmd)
	Cmd.AddCommand(caldavSyncCmd)
}

var errAmbiguousID = errors.New("task id prefix matches more than one task")

// resolveID accepts a full task id or the short prefix the list views print.
func resolveID(arg string, tasks []domain.Task) (uuid.UUID, error) {
	arg = strings.TrimSpace(arg)
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	if arg == "" {
		return uuid.Nil, errors.New("task id is required")
	}

	var match uuid.UUID
	for _, t := range tasks {
		if strings.HasPrefix(t.ID.String(), strings.ToLower(arg)) {
			if match != uuid.Nil && match != t.ID {
				return uuid.Nil, errAmbiguousID
			}
			match = t.ID
		}
	}
	if match == uuid.Nil {
		return uuid.Nil, fmt.Errorf("no task matches id %q", arg)
	}
	return match, nil
}

func printTasks(out io.Writer, tasks []domain.Task) {
	for _, t := range tasks {
		fmt.Fprintln(out, FormatLine(t))
	}
}

// FormatLine renders a task with its description on a second line.
func FormatLine(t domain.Task) string {
	line := cli.FormatTask(t)
	if t.Description != "" {
		line += "\n    " + cli.Muted(t.Description)
	}
	return line
}
