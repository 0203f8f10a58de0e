package task

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/commands"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

var (
	addDate        string
	addTime        string
	addKind        string
	addPriority    string
	addDescription string
	addRecurring   bool
	addRule        string
)

var addCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task or event",
	Long: `Add a task or event for the signed-in profile.

Recurring tasks repeat daily, weekly, monthly or yearly from their date.
A recurring task needs --rule.

Examples:
  lakron task add "Buy milk"
  lakron task add "Dentist" --type event --date 2024-05-02 --time 14:30
  lakron task add "Stretch" --recurring --rule daily --priority high`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		date := addDate
		if date == "" {
			date = time.Now().Format(domain.DateLayout)
		}

		task, err := ws.AddTask.Handle(cmd.Context(), commands.AddTaskCommand{
			Title:          args[0],
			Description:    addDescription,
			Date:           date,
			Time:           addTime,
			Kind:           addKind,
			Priority:       addPriority,
			Recurring:      addRecurring,
			RecurrenceRule: addRule,
		})
		if err != nil {
			return fmt.Errorf("failed to add task: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Task added: %s\n", task.Title)
		fmt.Fprintf(out, "   ID: %s\n", task.ID)
		fmt.Fprintf(out, "   Date: %s\n", task.Date)
		if task.Recurring {
			fmt.Fprintf(out, "   Repeats: %s\n", task.RecurrenceRule)
		}
		return nil
	},
}

func init() {
	addCmd.Flags().StringVarP(&addDate, "date", "d", "", "date (YYYY-MM-DD, default today)")
	addCmd.Flags().StringVarP(&addTime, "time", "t", "", "time of day (HH:MM)")
	addCmd.Flags().StringVar(&addKind, "type", "task", "task or event")
	addCmd.Flags().StringVarP(&addPriority, "priority", "p", "medium", "priority (high, medium, low or 1-3)")
	addCmd.Flags().StringVar(&addDescription, "description", "", "longer description")
	addCmd.Flags().BoolVarP(&addRecurring, "recurring", "r", false, "repeat the task")
	addCmd.Flags().StringVar(&addRule, "rule", "", "recurrence rule (daily, weekly, monthly, yearly)")
}
