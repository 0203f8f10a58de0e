package caldav

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/export"
)

// objectServer stores calendar objects in memory and answers GET, PUT and
// DELETE for them.
type objectServer struct {
	mu      sync.Mutex
	objects map[string][]byte
	auth    []string
}

func newObjectServer(t *testing.T) (*objectServer, *httptest.Server) {
	t.Helper()
	s := &objectServer{objects: make(map[string][]byte)}
	srv := httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *objectServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, _, _ := r.BasicAuth()
	s.auth = append(s.auth, user)

	switch r.Method {
	case http.MethodGet:
		body, ok := s.objects[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", ical.MIMEType)
		_, _ = w.Write(body)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		_, existed := s.objects[r.URL.Path]
		s.objects[r.URL.Path] = body
		w.Header().Set("ETag", `"1"`)
		if existed {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		delete(s.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *objectServer) object(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.objects[path])
}

func (s *objectServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

var syncNow = time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

func syncTask(title, date string) domain.Task {
	return domain.Task{ID: uuid.New(), Title: title, Date: date, Kind: domain.KindTask, Priority: domain.PriorityMedium}
}

func TestSyncer_Sync(t *testing.T) {
	server, srv := newObjectServer(t)
	syncer := NewSyncer(srv.URL, "ana", "app-password", nil).WithCalendarPath("/cal/personal")
	ctx := context.Background()

	standup := syncTask("Standup", "2024-03-11")
	standup.Recurring = true
	standup.RecurrenceRule = domain.RuleWeekly
	dentist := syncTask("Dentist", "2024-03-20")
	broken := syncTask("Broken", "someday")

	result, err := syncer.Sync(ctx, []domain.Task{standup, dentist, broken}, syncNow)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Created: 2, Failed: 1}, result)
	assert.Equal(t, 2, server.count())

	body := server.object("/cal/personal/" + standup.ID.String() + ".ics")
	assert.Contains(t, body, "SUMMARY:Standup")
	assert.Contains(t, body, "RRULE:FREQ=WEEKLY;INTERVAL=1")
	assert.Contains(t, body, export.PropXLakron+":1")

	for _, user := range server.auth {
		assert.Equal(t, "ana", user)
	}

	dentist.Title = "Dentist (moved)"
	result, err = syncer.Sync(ctx, []domain.Task{dentist}, syncNow)
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Updated: 1}, result)
	assert.True(t, strings.Contains(server.object("/cal/personal/"+dentist.ID.String()+".ics"), "Dentist (moved)"))
}

func TestSyncer_Delete(t *testing.T) {
	server, srv := newObjectServer(t)
	syncer := NewSyncer(srv.URL, "ana", "pw", nil).WithCalendarPath("/cal/personal/")
	ctx := context.Background()

	task := syncTask("Dentist", "2024-03-20")
	_, err := syncer.Sync(ctx, []domain.Task{task}, syncNow)
	require.NoError(t, err)
	require.Equal(t, 1, server.count())

	require.NoError(t, syncer.Delete(ctx, task.ID))
	assert.Equal(t, 0, server.count())
}

func TestIsLakronEvent(t *testing.T) {
	task := syncTask("x", "2024-03-20")
	ours := export.Calendar([]domain.Task{task}, syncNow)
	assert.True(t, isLakronEvent(ours))

	foreign := ical.NewCalendar()
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, "someone-else")
	foreign.Children = append(foreign.Children, event.Component)
	assert.False(t, isLakronEvent(foreign))

	assert.False(t, isLakronEvent(nil))
}

func TestEventPath(t *testing.T) {
	id := uuid.MustParse("6f1c2f55-5d8e-4b83-9d1e-9a2d3b4c5e6f")
	assert.Equal(t, "/cal/6f1c2f55-5d8e-4b83-9d1e-9a2d3b4c5e6f.ics", eventPath("/cal", id))
	assert.Equal(t, "/cal/6f1c2f55-5d8e-4b83-9d1e-9a2d3b4c5e6f.ics", eventPath("/cal/", id))
}

func TestSyncer_Options(t *testing.T) {
	s := NewSyncer("https://dav.example.com", "u", "p", nil)
	assert.False(t, s.deleteMissing)
	assert.Same(t, s, s.WithDeleteMissing(true))
	assert.True(t, s.deleteMissing)
	assert.Same(t, s, s.WithCalendarPath("/c/"))
	assert.Equal(t, "/c/", s.calendarPath)
}
