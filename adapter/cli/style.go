package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	doneStyle   = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	highStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	lowStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Header renders a section title followed by a rule.
func Header(title string) string {
	return headerStyle.Render(title) + "\n" + mutedStyle.Render(strings.Repeat("-", 60))
}

// Muted renders secondary text.
func Muted(s string) string {
	return mutedStyle.Render(s)
}

// Failure renders an error line.
func Failure(s string) string {
	return errorStyle.Render(s)
}

// StatusIcon is the checkbox for a task's completion.
func StatusIcon(completed bool) string {
	if completed {
		return "[x]"
	}
	return "[ ]"
}

// PriorityBadge marks high and low priority tasks.
func PriorityBadge(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return highStyle.Render("(!)")
	case domain.PriorityLow:
		return lowStyle.Render("(.)")
	default:
		return ""
	}
}

// ShortID is the first block of a task id.
func ShortID(id uuid.UUID) string {
	return id.String()[:8]
}

// FormatTask renders one task on a single line.
func FormatTask(t domain.Task) string {
	var b strings.Builder
	b.WriteString(StatusIcon(t.Completed))
	b.WriteString(" ")
	if t.Time != "" {
		b.WriteString(t.Time)
		b.WriteString(" ")
	}

	title := t.Title
	if t.Completed {
		title = doneStyle.Render(title)
	}
	b.WriteString(title)

	if badge := PriorityBadge(t.Priority); badge != "" {
		b.WriteString(" ")
		b.WriteString(badge)
	}
	if t.Kind == domain.KindEvent {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render("[event]"))
	}
	if t.Recurring {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("(%s)", t.RecurrenceRule)))
	}
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(ShortID(t.ID)))
	return b.String()
}
