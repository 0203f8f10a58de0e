package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// ErrUnknownFormat is returned for an unsupported export format.
var ErrUnknownFormat = errors.New("unknown export format")

// Format is an export encoding.
type Format string

const (
	FormatICS  Format = "ics"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts ics, ical, json, yaml and yml. Empty means ics.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ics", "ical":
		return FormatICS, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Record is the serialized form of a task in JSON and YAML exports.
type Record struct {
	ID             string   `json:"id" yaml:"id"`
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Date           string   `json:"date" yaml:"date"`
	Time           string   `json:"time,omitempty" yaml:"time,omitempty"`
	Kind           string   `json:"type" yaml:"type"`
	Priority       string   `json:"priority" yaml:"priority"`
	Recurring      bool     `json:"recurring" yaml:"recurring"`
	RecurrenceRule string   `json:"recurrence_rule,omitempty" yaml:"recurrence_rule,omitempty"`
	CompletedDates []string `json:"completed_dates,omitempty" yaml:"completed_dates,omitempty"`
	Completed      bool     `json:"completed" yaml:"completed"`
	CreatedAt      string   `json:"created_at" yaml:"created_at"`
}

// Document is the top-level JSON and YAML export.
type Document struct {
	Profile    string   `json:"profile" yaml:"profile"`
	ExportedAt string   `json:"exported_at" yaml:"exported_at"`
	Tasks      []Record `json:"tasks" yaml:"tasks"`
}

// NewRecord converts a materialized task.
func NewRecord(task domain.Task) Record {
	return Record{
		ID:             task.ID.String(),
		Title:          task.Title,
		Description:    task.Description,
		Date:           task.Date,
		Time:           task.Time,
		Kind:           string(task.Kind),
		Priority:       task.Priority.String(),
		Recurring:      task.Recurring,
		RecurrenceRule: string(task.RecurrenceRule),
		CompletedDates: task.CompletedDates,
		Completed:      task.Completed,
		CreatedAt:      task.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Write encodes tasks to w in format.
func Write(w io.Writer, format Format, profile string, tasks []domain.Task, now time.Time) error {
	if format == FormatICS {
		return ical.NewEncoder(w).Encode(Calendar(tasks, now))
	}

	doc := Document{
		Profile:    profile,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Tasks:      make([]Record, 0, len(tasks)),
	}
	for _, task := range tasks {
		doc.Tasks = append(doc.Tasks, NewRecord(task))
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
