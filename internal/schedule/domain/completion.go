package domain

import (
	"errors"
	"slices"
	"time"
)

// ErrNotDue is returned when a recurring task is toggled on a day it has no occurrence.
var ErrNotDue = errors.New("task is not due on this day")

// Toggle is the completion state produced by ToggleOn.
type Toggle struct {
	CompletedDates []string
	Completed      bool
}

// IsCompletedOn reports whether day is recorded in the task's completion dates.
func IsCompletedOn(task Task, day time.Time) bool {
	return slices.Contains(task.CompletedDates, FormatDay(day))
}

// ToggleOn computes the completion state after toggling task on day.
// The task itself is not modified.
func ToggleOn(task Task, day time.Time) (Toggle, error) {
	if !task.Recurring {
		return Toggle{Completed: !task.Completed}, nil
	}
	if !IsDue(task, day) {
		return Toggle{}, ErrNotDue
	}

	key := FormatDay(day)
	dates := make([]string, 0, len(task.CompletedDates)+1)
	found := false
	for _, d := range task.CompletedDates {
		if d == key {
			found = true
			continue
		}
		dates = append(dates, d)
	}
	if !found {
		dates = append(dates, key)
	}

	slices.Sort(dates)
	dates = slices.Compact(dates)

	return Toggle{CompletedDates: dates, Completed: !found}, nil
}

// Streak counts consecutive completed occurrences ending on day.
// Days on which the task is not due are skipped rather than breaking the run.
func Streak(task Task, day time.Time) int {
	if !task.Recurring || len(task.CompletedDates) == 0 {
		return 0
	}

	anchor, err := ParseDay(task.Date, day.Location())
	if err != nil {
		return 0
	}

	streak := 0
	for d := StartOfDay(day); !d.Before(anchor); d = d.AddDate(0, 0, -1) {
		if !IsDue(task, d) {
			continue
		}
		if !IsCompletedOn(task, d) {
			// Today's occurrence may still be pending.
			if streak == 0 && d.Equal(StartOfDay(day)) {
				continue
			}
			break
		}
		streak++
	}
	return streak
}
