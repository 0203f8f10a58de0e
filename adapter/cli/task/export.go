package task

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	"github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/export"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/security"
)

var (
	exportFormat string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every task as iCalendar, JSON or YAML",
	Long: `Export every task of the profile. Recurring tasks become repeating
events in iCalendar output.

Examples:
  lakron task export > tasks.ics
  lakron task export --format json --output tasks.json
  lakron task export --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}

		ws, err := cli.CurrentWorkspace(cmd.Context())
		if err != nil {
			return err
		}

		tasks, err := ws.Engine.All(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to load tasks: %w", err)
		}

		var buf bytes.Buffer
		if err := export.Write(&buf, format, ws.Session.Name, tasks, time.Now()); err != nil {
			return fmt.Errorf("failed to export tasks: %w", err)
		}

		if exportOutput == "" || exportOutput == "-" {
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		}
		if err := security.WritePrivateFile(exportOutput, buf.Bytes()); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d tasks to %s\n", len(tasks), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatICS), "ics, json or yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write (default stdout)")
}
