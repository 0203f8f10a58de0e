package task

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
)

var calendarMonth string

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show a month with task counts per day",
	Long: `Show a month grid. Each day shows completed/total tasks due that day.

Examples:
  lakron task calendar
  lakron task calendar --month 2024-05`,
	Aliases: []string{"cal"},
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		month := time.Now()
		if calendarMonth != "" {
			month, err = time.Parse("2006-01", calendarMonth)
			if err != nil {
				return fmt.Errorf("invalid --month format, use YYYY-MM: %w", err)
			}
		}

		days, err := ws.Calendar.Month(cmd.Context(), month.Year(), month.Month())
		if err != nil {
			return fmt.Errorf("failed to load month: %w", err)
		}

		renderMonth(cmd.OutOrStdout(), month, days)
		return nil
	},
}

// renderMonth prints a Monday-first grid.
func renderMonth(out io.Writer, month time.Time, days []queries.DaySummary) {
	fmt.Fprintln(out, cli.Header(month.Format("January 2006")))
	fmt.Fprintln(out, " Mon    Tue    Wed    Thu    Fri    Sat    Sun")

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.Local)
	offset := (int(first.Weekday()) + 6) % 7

	var row strings.Builder
	row.WriteString(strings.Repeat("       ", offset))
	col := offset
	for i, d := range days {
		cell := fmt.Sprintf("%2d", i+1)
		if d.Total > 0 {
			cell += fmt.Sprintf(" %d/%d", d.Completed, d.Total)
		}
		if d.IsToday {
			cell = "*" + cell
		}
		row.WriteString(fmt.Sprintf("%-7s", cell))
		col++
		if col == 7 {
			fmt.Fprintln(out, strings.TrimRight(row.String(), " "))
			row.Reset()
			col = 0
		}
	}
	if row.Len() > 0 {
		fmt.Fprintln(out, strings.TrimRight(row.String(), " "))
	}
}

func init() {
	calendarCmd.Flags().StringVarP(&calendarMonth, "month", "m", "", "month to show (YYYY-MM, default current)")
}
