// Package queries groups and filters tasks by calendar day for the today,
// day, upcoming and month views. Every "is it due" decision goes through
// domain.IsDue.
package queries

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// ErrTaskNotFound is returned for an id the active profile does not own.
var ErrTaskNotFound = errors.New("task not found")

// DefaultUpcomingDays is the upcoming window when none is given.
const DefaultUpcomingDays = 7

// TaskSource supplies tasks for the active profile.
type TaskSource interface {
	// Snapshot is the live collection: every non-recurring task plus the
	// recurring tasks due today.
	Snapshot() []domain.Task
	// All returns every task, including recurring ones not due today.
	All(ctx context.Context) ([]domain.Task, error)
}

// DayGroup is the tasks falling on one day.
type DayGroup struct {
	Date        string        `json:"date" yaml:"date"`
	DaysFromNow int           `json:"days_from_now" yaml:"days_from_now"`
	Tasks       []domain.Task `json:"tasks" yaml:"tasks"`
}

// DaySummary is one cell of the month grid.
type DaySummary struct {
	Date      string `json:"date"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	IsToday   bool   `json:"is_today"`
	IsPast    bool   `json:"is_past"`
}

// Stats are the headline counters of the schedule view.
type Stats struct {
	Today     int `json:"today"`
	Completed int `json:"completed"`
}

// Calendar answers the read-side views.
type Calendar struct {
	source TaskSource
	now    func() time.Time
}

// NewCalendar creates a Calendar. A nil now uses time.Now.
func NewCalendar(source TaskSource, now func() time.Time) *Calendar {
	if now == nil {
		now = time.Now
	}
	return &Calendar{source: source, now: now}
}

// Today returns non-recurring tasks dated today and recurring tasks due
// today, filtered by a case-insensitive title search when query is set.
func (c *Calendar) Today(query string) []domain.Task {
	today := domain.FormatDay(c.now())
	out := []domain.Task{}
	for _, t := range c.source.Snapshot() {
		if !t.Recurring && t.Date != today {
			continue
		}
		out = append(out, t)
	}
	return Search(out, query)
}

// Day returns the tasks anchored on date, filtered by query.
func (c *Calendar) Day(ctx context.Context, date, query string) ([]domain.Task, error) {
	day, err := domain.ParseDay(date, c.now().Location())
	if err != nil {
		return nil, domain.ErrInvalidDate
	}
	all, err := c.source.All(ctx)
	if err != nil {
		return nil, err
	}
	return Search(OnDate(all, day), query), nil
}

// Upcoming returns the next days (default DefaultUpcomingDays) starting
// tomorrow, one group per day that has something due.
func (c *Calendar) Upcoming(ctx context.Context, days int) ([]DayGroup, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	all, err := c.source.All(ctx)
	if err != nil {
		return nil, err
	}

	today := domain.StartOfDay(c.now())
	groups := []DayGroup{}
	for i := 1; i <= days; i++ {
		day := today.AddDate(0, 0, i)
		tasks := DueOn(all, day)
		if len(tasks) == 0 {
			continue
		}
		groups = append(groups, DayGroup{Date: domain.FormatDay(day), DaysFromNow: i, Tasks: tasks})
	}
	return groups, nil
}

// Month summarizes every day of year/month for the calendar grid.
func (c *Calendar) Month(ctx context.Context, year int, month time.Month) ([]DaySummary, error) {
	all, err := c.source.All(ctx)
	if err != nil {
		return nil, err
	}

	now := c.now()
	today := domain.StartOfDay(now)
	first := time.Date(year, month, 1, 0, 0, 0, 0, now.Location())

	var out []DaySummary
	for day := first; day.Month() == month; day = day.AddDate(0, 0, 1) {
		tasks := DueOn(all, day)
		completed := 0
		for _, t := range tasks {
			if t.Completed {
				completed++
			}
		}
		out = append(out, DaySummary{
			Date:      domain.FormatDay(day),
			Total:     len(tasks),
			Completed: completed,
			IsToday:   day.Equal(today),
			IsPast:    day.Before(today),
		})
	}
	return out, nil
}

// Stats counts tasks dated today and completed tasks across the profile.
func (c *Calendar) Stats(ctx context.Context) (Stats, error) {
	all, err := c.source.All(ctx)
	if err != nil {
		return Stats{}, err
	}
	today := domain.FormatDay(c.now())
	var s Stats
	for _, t := range all {
		if t.Date == today {
			s.Today++
		}
		if t.Completed {
			s.Completed++
		}
	}
	return s, nil
}

// Streak returns the completion streak of a recurring task ending today.
func (c *Calendar) Streak(ctx context.Context, id uuid.UUID) (int, error) {
	all, err := c.source.All(ctx)
	if err != nil {
		return 0, err
	}
	i := slices.IndexFunc(all, func(t domain.Task) bool { return t.ID == id })
	if i < 0 {
		return 0, ErrTaskNotFound
	}
	return domain.Streak(all[i], c.now()), nil
}

// OnDate returns the tasks whose anchor date is day.
func OnDate(tasks []domain.Task, day time.Time) []domain.Task {
	key := domain.FormatDay(day)
	out := []domain.Task{}
	for _, t := range tasks {
		if t.Date == key {
			out = append(out, t)
		}
	}
	return out
}

// DueOn returns non-recurring tasks dated day and recurring tasks due on
// day, with recurring completion derived for that day. The result is
// ordered by time.
func DueOn(tasks []domain.Task, day time.Time) []domain.Task {
	key := domain.FormatDay(day)
	out := []domain.Task{}
	for _, t := range tasks {
		switch {
		case !t.Recurring && t.Date == key:
			out = append(out, t)
		case t.Recurring && domain.IsDue(t, day):
			t.Completed = domain.IsCompletedOn(t, day)
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, func(a, b domain.Task) int { return cmp.Compare(a.Time, b.Time) })
	return out
}

// Search keeps tasks whose title contains query, ignoring case. An empty
// query keeps everything.
func Search(tasks []domain.Task, query string) []domain.Task {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return tasks
	}
	out := []domain.Task{}
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), query) {
			out = append(out, t)
		}
	}
	return out
}
