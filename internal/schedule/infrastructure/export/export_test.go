package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

var exportNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func sampleTask(rule domain.RecurrenceRule) domain.Task {
	task := domain.Task{
		ID:        uuid.MustParse("6f1c2f55-5d8e-4b83-9d1e-9a2d3b4c5e6f"),
		Title:     "Pay rent",
		Date:      "2024-01-31",
		Kind:      domain.KindTask,
		Priority:  domain.PriorityHigh,
		CreatedAt: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
	}
	if rule != domain.RuleNone {
		task.Recurring = true
		task.RecurrenceRule = rule
		task.CompletedDates = []string{"2024-01-31"}
	}
	return task
}

// The exported RRULE must produce exactly the days domain.IsDue accepts.
func TestRecurrenceOption_AgreesWithIsDue(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	for _, anchor := range []string{"2024-01-31", "2024-02-29", "2024-03-15"} {
		for _, rule := range []domain.RecurrenceRule{
			domain.RuleDaily, domain.RuleWeekly, domain.RuleMonthly, domain.RuleYearly, domain.RuleCustom,
		} {
			task := sampleTask(rule)
			task.Date = anchor
			start, err := domain.ParseDay(anchor, time.UTC)
			require.NoError(t, err)

			opt, ok := RecurrenceOption(task, start)
			require.True(t, ok)
			r, err := rrule.NewRRule(*opt)
			require.NoError(t, err)

			var want []string
			for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
				if domain.IsDue(task, d) {
					want = append(want, domain.FormatDay(d))
				}
			}
			var got []string
			for _, occ := range r.Between(from, to, true) {
				got = append(got, domain.FormatDay(occ))
			}
			assert.Equal(t, want, got, "%s from %s", rule, anchor)
		}
	}
}

func TestRecurrenceOption_NonRecurring(t *testing.T) {
	_, ok := RecurrenceOption(sampleTask(domain.RuleNone), exportNow)
	assert.False(t, ok)
}

func TestEvent(t *testing.T) {
	t.Run("all-day recurring", func(t *testing.T) {
		event, err := Event(sampleTask(domain.RuleMonthly), exportNow)
		require.NoError(t, err)

		assert.Equal(t, "6f1c2f55-5d8e-4b83-9d1e-9a2d3b4c5e6f@lakron", event.Props.Get(ical.PropUID).Value)
		assert.Equal(t, "20240131", event.Props.Get(ical.PropDateTimeStart).Value)
		assert.Equal(t, "20240201", event.Props.Get(ical.PropDateTimeEnd).Value)
		assert.Equal(t, "FREQ=MONTHLY;INTERVAL=1", event.Props.Get(ical.PropRecurrenceRule).Value)
		assert.Equal(t, "1", event.Props.Get(ical.PropPriority).Value)
		assert.Equal(t, "1", event.Props.Get(PropXLakron).Value)
	})

	t.Run("timed one-off", func(t *testing.T) {
		task := sampleTask(domain.RuleNone)
		task.Time = "09:30"
		task.Completed = true

		event, err := Event(task, exportNow)
		require.NoError(t, err)

		assert.Equal(t, "20240131T093000Z", event.Props.Get(ical.PropDateTimeStart).Value)
		assert.Nil(t, event.Props.Get(ical.PropDateTimeEnd))
		assert.Nil(t, event.Props.Get(ical.PropRecurrenceRule))
		assert.Equal(t, "CONFIRMED", event.Props.Get(ical.PropStatus).Value)
	})

	t.Run("bad date", func(t *testing.T) {
		task := sampleTask(domain.RuleNone)
		task.Date = "soon"
		_, err := Event(task, exportNow)
		assert.ErrorIs(t, err, domain.ErrInvalidDate)
	})
}

func TestWrite_ICS(t *testing.T) {
	var buf bytes.Buffer
	bad := sampleTask(domain.RuleNone)
	bad.Date = "never"

	err := Write(&buf, FormatICS, "home", []domain.Task{sampleTask(domain.RuleWeekly), bad}, exportNow)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "RRULE:FREQ=WEEKLY;INTERVAL=1")
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("BEGIN:VEVENT")))

	cal, err := ical.NewDecoder(bytes.NewReader(buf.Bytes())).Decode()
	require.NoError(t, err)
	assert.Len(t, cal.Events(), 1)
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, "home", []domain.Task{sampleTask(domain.RuleDaily)}, exportNow))

	var doc Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "home", doc.Profile)
	assert.Equal(t, "2024-03-15T10:00:00Z", doc.ExportedAt)
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "high", doc.Tasks[0].Priority)
	assert.Equal(t, []string{"2024-01-31"}, doc.Tasks[0].CompletedDates)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, "home", []domain.Task{sampleTask(domain.RuleNone)}, exportNow))

	assert.Contains(t, buf.String(), "title: Pay rent")

	var doc Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "2024-01-31", doc.Tasks[0].Date)
	assert.False(t, doc.Tasks[0].Recurring)
	assert.Empty(t, doc.Tasks[0].RecurrenceRule)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatICS, "ICS": FormatICS, "ical": FormatICS, "json": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("csv")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}
