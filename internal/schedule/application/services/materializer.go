package services

import (
	"time"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// Decrypter opens stored text fields. Implementations return the input
// unchanged when it cannot be decrypted.
type Decrypter interface {
	Decrypt(ciphertext string) string
}

type plainText struct{}

func (plainText) Decrypt(s string) string { return s }

// Materializer turns stored task records into view tasks for a day.
type Materializer struct {
	decrypter Decrypter
}

// NewMaterializer creates a Materializer. A nil decrypter leaves text untouched.
func NewMaterializer(decrypter Decrypter) *Materializer {
	if decrypter == nil {
		decrypter = plainText{}
	}
	return &Materializer{decrypter: decrypter}
}

// Materialize decrypts raw, normalizes its rule and derives its completion
// state for today. The boolean reports whether the task belongs in today's
// collection: non-recurring tasks always do, recurring tasks only when due.
func (m *Materializer) Materialize(raw domain.Task, today time.Time) (domain.Task, bool) {
	task := raw
	task.Title = m.decrypter.Decrypt(raw.Title)
	task.Description = m.decrypter.Decrypt(raw.Description)
	task.CompletedDates = append([]string(nil), raw.CompletedDates...)

	if !task.Recurring {
		task.RecurrenceRule = domain.RuleNone
		return task, true
	}

	task.RecurrenceRule = domain.NormalizeRecurrenceRule(string(raw.RecurrenceRule))
	if task.CompletedDates == nil {
		task.CompletedDates = []string{}
	}

	due := domain.IsDue(task, today)
	task.Completed = due && domain.IsCompletedOn(task, today)
	return task, due
}

// MaterializeAll materializes records and drops those not visible today,
// preserving order.
func (m *Materializer) MaterializeAll(raws []domain.Task, today time.Time) []domain.Task {
	out := make([]domain.Task, 0, len(raws))
	for _, raw := range raws {
		if task, ok := m.Materialize(raw, today); ok {
			out = append(out, task)
		}
	}
	return out
}
