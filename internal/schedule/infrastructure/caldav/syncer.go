// Package caldav pushes tasks to a CalDAV calendar (Nextcloud, Fastmail,
// iCloud and the like).
package caldav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/export"
)

// ErrNoCalendar is returned when the account has no calendar to write to.
var ErrNoCalendar = errors.New("no calendars found")

// SyncResult counts what a Sync did.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Failed  int `json:"failed"`
}

// Syncer writes one calendar object per task.
type Syncer struct {
	baseURL       string
	username      string
	password      string
	calendarPath  string
	httpClient    *http.Client
	logger        *slog.Logger
	deleteMissing bool
}

// NewSyncer creates a CalDAV syncer authenticating with basic auth.
func NewSyncer(baseURL, username, password string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithDeleteMissing makes Sync remove lakron events for tasks that no longer exist.
func (s *Syncer) WithDeleteMissing(enabled bool) *Syncer {
	s.deleteMissing = enabled
	return s
}

// WithCalendarPath pins the calendar collection instead of discovering it.
func (s *Syncer) WithCalendarPath(path string) *Syncer {
	s.calendarPath = path
	return s
}

// Sync creates or replaces an event for every task.
func (s *Syncer) Sync(ctx context.Context, tasks []domain.Task, now time.Time) (SyncResult, error) {
	client, err := s.client()
	if err != nil {
		return SyncResult{}, err
	}
	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return SyncResult{}, fmt.Errorf("find calendar: %w", err)
	}

	var result SyncResult
	keep := make(map[string]struct{}, len(tasks))

	for _, task := range tasks {
		path := eventPath(calPath, task.ID)
		keep[path] = struct{}{}

		event, err := export.Event(task, now)
		if err != nil {
			s.logger.WarnContext(ctx, "skipping task with invalid date", "task_id", task.ID, "error", err)
			result.Failed++
			continue
		}
		cal := ical.NewCalendar()
		cal.Props.SetText(ical.PropVersion, "2.0")
		cal.Props.SetText(ical.PropProductID, "-//Lakron//CalDAV Sync//EN")
		cal.Children = append(cal.Children, event.Component)

		updated, err := upsert(ctx, client, path, cal)
		if err != nil {
			s.logger.WarnContext(ctx, "caldav put failed", "path", path, "error", err)
			result.Failed++
			continue
		}
		if updated {
			result.Updated++
		} else {
			result.Created++
		}
	}

	if s.deleteMissing {
		deleted, err := s.deleteMissingEvents(ctx, client, calPath, keep)
		if err != nil {
			s.logger.WarnContext(ctx, "caldav cleanup failed", "error", err)
		}
		result.Deleted = deleted
	}

	s.logger.InfoContext(ctx, "caldav sync finished",
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted,
		"failed", result.Failed,
	)
	return result, nil
}

// Delete removes the event of one task.
func (s *Syncer) Delete(ctx context.Context, id uuid.UUID) error {
	client, err := s.client()
	if err != nil {
		return err
	}
	calPath, err := s.findCalendarPath(ctx, client)
	if err != nil {
		return fmt.Errorf("find calendar: %w", err)
	}
	return client.RemoveAll(ctx, eventPath(calPath, id))
}

func (s *Syncer) client() (*caldav.Client, error) {
	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(s.httpClient, s.username, s.password), s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	return client, nil
}

func (s *Syncer) findCalendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if s.calendarPath != "" {
		return s.calendarPath, nil
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", ErrNoCalendar
	}
	return cals[0].Path, nil
}

// upsert reports whether the object already existed.
func upsert(ctx context.Context, client *caldav.Client, path string, cal *ical.Calendar) (bool, error) {
	_, err := client.GetCalendarObject(ctx, path)
	exists := err == nil

	if _, err := client.PutCalendarObject(ctx, path, cal); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Syncer) deleteMissingEvents(ctx context.Context, client *caldav.Client, calPath string, keep map[string]struct{}) (int, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: "VCALENDAR",
			Comps: []caldav.CalendarCompRequest{
				{Name: "VEVENT", Props: []string{ical.PropUID, export.PropXLakron}},
			},
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT"}},
		},
	}

	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, obj := range objects {
		if !isLakronEvent(obj.Data) {
			continue
		}
		if _, ok := keep[obj.Path]; ok {
			continue
		}
		if err := client.RemoveAll(ctx, obj.Path); err != nil {
			s.logger.WarnContext(ctx, "caldav delete failed", "path", obj.Path, "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// isLakronEvent reports whether cal holds an event written by lakron.
func isLakronEvent(cal *ical.Calendar) bool {
	if cal == nil {
		return false
	}
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		if prop := child.Props.Get(export.PropXLakron); prop != nil && prop.Value == "1" {
			return true
		}
	}
	return false
}

func eventPath(calPath string, id uuid.UUID) string {
	if !strings.HasSuffix(calPath, "/") {
		calPath += "/"
	}
	return calPath + id.String() + ".ics"
}
