package domain

import (
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used for anchor and completion dates.
const DateLayout = "2006-01-02"

// RecurrenceRule is the repeat cadence of a recurring task.
type RecurrenceRule string

const (
	RuleNone    RecurrenceRule = ""
	RuleDaily   RecurrenceRule = "daily"
	RuleWeekly  RecurrenceRule = "weekly"
	RuleMonthly RecurrenceRule = "monthly"
	RuleYearly  RecurrenceRule = "yearly"
	RuleCustom  RecurrenceRule = "custom"
)

// String returns the string representation of the rule.
func (r RecurrenceRule) String() string {
	return string(r)
}

// IsValid reports whether r is one of the known rule tags.
func (r RecurrenceRule) IsValid() bool {
	switch r {
	case RuleDaily, RuleWeekly, RuleMonthly, RuleYearly, RuleCustom:
		return true
	default:
		return false
	}
}

// NormalizeRecurrenceRule maps a stored rule tag onto a known rule.
// Empty input stays empty; anything unrecognized becomes RuleCustom.
func NormalizeRecurrenceRule(raw string) RecurrenceRule {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if tag == "" {
		return RuleNone
	}
	if rule := RecurrenceRule(tag); rule.IsValid() {
		return rule
	}
	return RuleCustom
}

// StartOfDay strips the time-of-day from t, keeping its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FormatDay renders t as an ISO calendar date.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDay parses an ISO calendar date at midnight in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
}

// IsDue reports whether a recurring task has an occurrence on day.
// Non-recurring tasks and tasks without a rule are never due. Both the anchor
// and day are compared as calendar dates in day's location.
func IsDue(task Task, day time.Time) bool {
	if !task.Recurring || task.RecurrenceRule == RuleNone {
		return false
	}

	ref := StartOfDay(day)
	anchor, err := ParseDay(task.Date, ref.Location())
	if err != nil {
		return false
	}
	if anchor.After(ref) {
		return false
	}

	switch NormalizeRecurrenceRule(string(task.RecurrenceRule)) {
	case RuleDaily:
		return true
	case RuleWeekly:
		return anchor.Weekday() == ref.Weekday()
	case RuleMonthly:
		// No clamping: an anchor on the 31st skips shorter months.
		return anchor.Day() == ref.Day()
	case RuleYearly:
		return anchor.Day() == ref.Day() && anchor.Month() == ref.Month()
	default:
		return true
	}
}
