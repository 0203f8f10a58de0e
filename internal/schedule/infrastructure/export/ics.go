// Package export renders tasks as iCalendar, JSON or YAML.
package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// PropXLakron marks events written by lakron so sync can find them again.
const PropXLakron = "X-LAKRON"

const productID = "-//Lakron//Task Export//EN"

// Calendar builds a VCALENDAR holding one VEVENT per task.
func Calendar(tasks []domain.Task, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText(ical.PropCalendarScale, "GREGORIAN")

	for _, task := range tasks {
		event, err := Event(task, now)
		if err != nil {
			continue
		}
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// Event converts a task into a VEVENT. Untimed tasks become all-day events;
// recurring tasks carry an RRULE equivalent to their recurrence rule.
func Event(task domain.Task, now time.Time) (*ical.Event, error) {
	day, err := domain.ParseDay(task.Date, now.Location())
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, domain.ErrInvalidDate)
	}

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, UID(task))
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetText(ical.PropSummary, task.Title)

	start := startOf(task, day)
	if task.Time == "" {
		event.Props.SetDate(ical.PropDateTimeStart, start)
		event.Props.SetDate(ical.PropDateTimeEnd, start.AddDate(0, 0, 1))
	} else {
		start = start.UTC()
		event.Props.SetDateTime(ical.PropDateTimeStart, start)
	}

	if desc := strings.TrimSpace(task.Description); desc != "" {
		event.Props.SetText(ical.PropDescription, desc)
	}

	priority := ical.NewProp(ical.PropPriority)
	priority.Value = icalPriority(task.Priority)
	event.Props[ical.PropPriority] = []ical.Prop{*priority}

	categories := ical.NewProp(ical.PropCategories)
	categories.Value = strings.ToUpper(string(task.Kind))
	event.Props[ical.PropCategories] = []ical.Prop{*categories}

	if opt, ok := RecurrenceOption(task, start); ok {
		rule := ical.NewProp(ical.PropRecurrenceRule)
		rule.Value = opt.RRuleString()
		event.Props[ical.PropRecurrenceRule] = []ical.Prop{*rule}
	} else if task.Completed {
		status := ical.NewProp(ical.PropStatus)
		status.Value = "CONFIRMED"
		event.Props[ical.PropStatus] = []ical.Prop{*status}
	}

	marker := ical.NewProp(PropXLakron)
	marker.Value = "1"
	event.Props[PropXLakron] = []ical.Prop{*marker}

	return event, nil
}

// RecurrenceOption maps a task's rule onto an RFC 5545 recurrence starting
// at start. Custom rules recur daily, matching domain.IsDue. Monthly rules
// anchored past the 28th skip shorter months, which RFC 5545 also does.
func RecurrenceOption(task domain.Task, start time.Time) (*rrule.ROption, bool) {
	if !task.Recurring {
		return nil, false
	}

	var freq rrule.Frequency
	switch domain.NormalizeRecurrenceRule(string(task.RecurrenceRule)) {
	case domain.RuleNone:
		return nil, false
	case domain.RuleWeekly:
		freq = rrule.WEEKLY
	case domain.RuleMonthly:
		freq = rrule.MONTHLY
	case domain.RuleYearly:
		freq = rrule.YEARLY
	default:
		freq = rrule.DAILY
	}
	return &rrule.ROption{Freq: freq, Interval: 1, Dtstart: start}, true
}

// UID is the stable iCalendar identifier of a task.
func UID(task domain.Task) string {
	return task.ID.String() + "@lakron"
}

func startOf(task domain.Task, day time.Time) time.Time {
	if task.Time == "" {
		return day
	}
	t, err := time.Parse("15:04", task.Time)
	if err != nil {
		return day
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute)
}

// icalPriority maps high, medium and low onto the RFC 5545 scale 1, 5 and 9.
func icalPriority(p domain.Priority) string {
	switch p {
	case domain.PriorityHigh:
		return "1"
	case domain.PriorityLow:
		return "9"
	default:
		return "5"
	}
}
