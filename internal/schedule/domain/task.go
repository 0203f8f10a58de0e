package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle      = errors.New("task title cannot be empty")
	ErrInvalidDate     = errors.New("task date must be YYYY-MM-DD")
	ErrInvalidTime     = errors.New("task time must be HH:MM")
	ErrInvalidPriority = errors.New("task priority must be 1, 2 or 3")
	ErrInvalidKind     = errors.New("task kind must be task or event")
	ErrMissingRule     = errors.New("recurring task requires a recurrence rule")
)

var timePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Kind separates tasks from events. It only affects presentation.
type Kind string

const (
	KindTask  Kind = "task"
	KindEvent Kind = "event"
)

// Priority ranks a task. Lower is more important.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// String returns a label for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

// ParsePriority accepts 1-3 or high/medium/low.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "high":
		return PriorityHigh, nil
	case "2", "medium", "":
		return PriorityMedium, nil
	case "3", "low":
		return PriorityLow, nil
	default:
		return 0, ErrInvalidPriority
	}
}

// Task is a stored task or event record. Title and Description hold
// ciphertext when read from the store and plaintext once materialized.
type Task struct {
	ID             uuid.UUID      `json:"id"`
	ProfileID      uuid.UUID      `json:"profile_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	Date           string         `json:"date"`
	Time           string         `json:"time,omitempty"`
	Kind           Kind           `json:"type"`
	Priority       Priority       `json:"priority"`
	Recurring      bool           `json:"recurring"`
	RecurrenceRule RecurrenceRule `json:"recurrence_rule,omitempty"`
	CompletedDates []string       `json:"completedDates,omitempty"`
	Completed      bool           `json:"completed"`
	CreatedAt      time.Time      `json:"created_at"`
}

// NewTask builds an unsaved task, applying creation defaults.
// Recurring tasks start with an empty completion set; the rule is dropped
// for non-recurring tasks.
func NewTask(profileID uuid.UUID, title, date string) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, ErrEmptyTitle
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(date)); err != nil {
		return Task{}, ErrInvalidDate
	}
	return Task{
		ProfileID: profileID,
		Title:     title,
		Date:      strings.TrimSpace(date),
		Kind:      KindTask,
		Priority:  PriorityMedium,
	}, nil
}

// SetTime sets the advisory time of day. Empty clears it.
func (t *Task) SetTime(hhmm string) error {
	hhmm = strings.TrimSpace(hhmm)
	if hhmm != "" && !timePattern.MatchString(hhmm) {
		return ErrInvalidTime
	}
	t.Time = hhmm
	return nil
}

// SetKind sets the task kind.
func (t *Task) SetKind(kind Kind) error {
	switch kind {
	case KindTask, KindEvent:
		t.Kind = kind
		return nil
	case "":
		t.Kind = KindTask
		return nil
	default:
		return ErrInvalidKind
	}
}

// SetPriority sets the priority.
func (t *Task) SetPriority(p Priority) error {
	if !p.IsValid() {
		return ErrInvalidPriority
	}
	t.Priority = p
	return nil
}

// SetRecurrence marks the task as recurring with rule, or clears recurrence
// when rule is empty.
func (t *Task) SetRecurrence(rule string) {
	normalized := NormalizeRecurrenceRule(rule)
	if normalized == RuleNone {
		t.Recurring = false
		t.RecurrenceRule = RuleNone
		t.CompletedDates = nil
		return
	}
	t.Recurring = true
	t.RecurrenceRule = normalized
	t.Completed = false
	if t.CompletedDates == nil {
		t.CompletedDates = []string{}
	}
}

// Patch is a partial update of a stored task. Nil fields are left unchanged.
type Patch struct {
	Completed      *bool
	CompletedDates []string
}

// PatchFromToggle converts a toggle result into the fields that must be persisted.
func PatchFromToggle(task Task, toggle Toggle) Patch {
	if task.Recurring {
		dates := toggle.CompletedDates
		if dates == nil {
			dates = []string{}
		}
		return Patch{CompletedDates: dates}
	}
	completed := toggle.Completed
	return Patch{Completed: &completed}
}

// Apply returns a copy of t with the patch applied.
func (p Patch) Apply(t Task) Task {
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.CompletedDates != nil {
		t.CompletedDates = append([]string(nil), p.CompletedDates...)
	}
	return t
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Completed == nil && p.CompletedDates == nil
}
