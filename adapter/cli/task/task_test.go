package task

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lakron/adapter/cli"
	internalApp "github.com/felixgeelhaar/lakron/internal/app"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/commands"
	"github.com/felixgeelhaar/lakron/internal/schedule/application/queries"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/schedule/infrastructure/export"
	"github.com/felixgeelhaar/lakron/pkg/config"
)

// setupLocalModeTestApp creates a signed-in test application backed by SQLite.
func setupLocalModeTestApp(t *testing.T) *cli.App {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		AppEnv:               "test",
		LocalMode:            true,
		DatabaseDriver:       "sqlite",
		SQLitePath:           filepath.Join(dir, "test.db"),
		ChangeFeed:           config.ChangeFeedInProcess,
		SubscribeMaxAttempts: 3,
		SubscribeBackoff:     10 * time.Millisecond,
		SessionPath:          filepath.Join(dir, "session.json"),
		KDFIterations:        1000,
	}

	ctx := context.Background()
	container, err := internalApp.NewContainer(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	sess, err := container.Auth.CreateProfile(ctx, "ada", "correct horse")
	require.NoError(t, err)
	require.NoError(t, container.Sessions.Save(sess))

	app := cli.NewApp(container)
	cli.SetApp(app)
	t.Cleanup(func() {
		cli.SetApp(nil)
		app.Close()
		container.Close()
	})
	return app
}

func resetFlags() {
	addDate, addTime, addKind, addPriority, addDescription = "", "", "task", "medium", ""
	addRecurring, addRule = false, ""
	todaySearch, daySearch, listSearch = "", "", ""
	todayRefresh = false
	upcomingDays = queries.DefaultUpcomingDays
	calendarMonth = ""
	exportFormat, exportOutput = "ics", ""
	syncDeleteMissing = false
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func today() string {
	return time.Now().Format(domain.DateLayout)
}

func workspace(t *testing.T, app *cli.App) *internalApp.Workspace {
	t.Helper()
	ws, err := app.Workspace(context.Background())
	require.NoError(t, err)
	return ws
}

func TestAddCmd_AddsTaskForToday(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	addPriority = "high"
	addTime = "09:15"

	out, err := run(t, addCmd, "Water plants")
	require.NoError(t, err)
	assert.Contains(t, out, "Task added: Water plants")
	assert.Contains(t, out, "Date: "+today())

	snap := workspace(t, app).Engine.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, domain.PriorityHigh, snap[0].Priority)
	assert.Equal(t, "09:15", snap[0].Time)
}

func TestAddCmd_RecurringNeedsRule(t *testing.T) {
	setupLocalModeTestApp(t)
	resetFlags()
	addRecurring = true

	_, err := run(t, addCmd, "Stretch")
	assert.ErrorIs(t, err, domain.ErrMissingRule)
}

func TestAddCmd_InvalidDate(t *testing.T) {
	setupLocalModeTestApp(t)
	resetFlags()
	addDate = "tomorrow"

	_, err := run(t, addCmd, "Call mum")
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestTodayCmd(t *testing.T) {
	setupLocalModeTestApp(t)
	resetFlags()

	out, err := run(t, todayCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing due today.")

	_, err = run(t, addCmd, "Water plants")
	require.NoError(t, err)
	addRecurring, addRule, addDate = true, "daily", "2020-01-01"
	_, err = run(t, addCmd, "Stretch")
	require.NoError(t, err)
	resetFlags()

	out, err = run(t, todayCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "(0/2 done)")
	assert.Contains(t, out, "Water plants")
	assert.Contains(t, out, "Stretch")

	todaySearch = "stretch"
	out, err = run(t, todayCmd)
	require.NoError(t, err)
	assert.NotContains(t, out, "Water plants")
	assert.Contains(t, out, "Stretch")
}

func TestToggleCmd_ByShortID(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)

	task, err := ws.AddTask.Handle(context.Background(), commands.AddTaskCommand{Title: "Read", Date: today()})
	require.NoError(t, err)

	out, err := run(t, toggleCmd, cli.ShortID(task.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "Done: Read")

	out, err = run(t, toggleCmd, task.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Not done: Read")
}

func TestToggleCmd_NotInTodaysCollection(t *testing.T) {
	setupLocalModeTestApp(t)
	resetFlags()

	_, err := run(t, toggleCmd, uuid.NewString())
	assert.Error(t, err)
}

func TestListAndDeleteCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)
	ctx := context.Background()

	_, err := ws.AddTask.Handle(ctx, commands.AddTaskCommand{Title: "Later", Date: "2030-01-02"})
	require.NoError(t, err)
	first, err := ws.AddTask.Handle(ctx, commands.AddTaskCommand{Title: "Earlier", Date: "2030-01-01"})
	require.NoError(t, err)

	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Tasks (2)")
	assert.Less(t, strings.Index(out, "Earlier"), strings.Index(out, "Later"))

	out, err = run(t, deleteCmd, first.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, "Task deleted")

	all, err := ws.Engine.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Later", all[0].Title)
}

func TestDayAndUpcomingCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)

	tomorrow := time.Now().AddDate(0, 0, 1).Format(domain.DateLayout)
	_, err := ws.AddTask.Handle(context.Background(), commands.AddTaskCommand{Title: "Pack bags", Date: tomorrow})
	require.NoError(t, err)

	out, err := run(t, dayCmd, tomorrow)
	require.NoError(t, err)
	assert.Contains(t, out, "Pack bags")

	out, err = run(t, upcomingCmd)
	require.NoError(t, err)
	assert.Contains(t, out, tomorrow+" (tomorrow)")
	assert.Contains(t, out, "Pack bags")

	upcomingDays = 0
	out, err = run(t, upcomingCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Pack bags")
}

func TestCalendarCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)

	_, err := ws.AddTask.Handle(context.Background(), commands.AddTaskCommand{Title: "Rent", Date: "2024-02-01", Recurring: true, RecurrenceRule: "monthly"})
	require.NoError(t, err)

	calendarMonth = "2024-03"
	out, err := run(t, calendarCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "March 2024")
	assert.Contains(t, out, " 1 0/1")

	calendarMonth = "March"
	_, err = run(t, calendarCmd)
	assert.Error(t, err)
}

func TestRenderMonth_StartsOnWeekday(t *testing.T) {
	days := make([]queries.DaySummary, 30)
	var out bytes.Buffer

	// 1 April 2024 is a Monday.
	renderMonth(&out, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.Local), days)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[3], " 1"))
}

func TestStatsAndStreakCmd(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)
	ctx := context.Background()

	habit, err := ws.AddTask.Handle(ctx, commands.AddTaskCommand{Title: "Meditate", Date: "2020-01-01", Recurring: true, RecurrenceRule: "daily"})
	require.NoError(t, err)
	_, err = ws.ToggleTask.Handle(ctx, habit.ID)
	require.NoError(t, err)

	out, err := run(t, statsCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Completed:    1")
	assert.Contains(t, out, "Collection:   1 tasks (ready)")

	out, err = run(t, streakCmd, cli.ShortID(habit.ID))
	require.NoError(t, err)
	assert.Contains(t, out, "Streak: 1 day")
}

func TestExportCmd_JSON(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)

	_, err := ws.AddTask.Handle(context.Background(), commands.AddTaskCommand{Title: "Dentist", Date: "2024-05-02", Kind: "event"})
	require.NoError(t, err)

	exportFormat = "json"
	out, err := run(t, exportCmd)
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "ada", doc.Profile)
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "Dentist", doc.Tasks[0].Title)
	assert.Equal(t, "event", doc.Tasks[0].Kind)
}

func TestExportCmd_ICSToFile(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)

	_, err := ws.AddTask.Handle(context.Background(), commands.AddTaskCommand{Title: "Gym", Date: "2024-05-02", Recurring: true, RecurrenceRule: "weekly"})
	require.NoError(t, err)

	exportOutput = filepath.Join(t.TempDir(), "tasks.ics")
	_, err = run(t, exportCmd)
	require.NoError(t, err)
	assert.FileExists(t, exportOutput)
}

func TestExportCmd_UnknownFormat(t *testing.T) {
	setupLocalModeTestApp(t)
	resetFlags()
	exportFormat = "csv"

	_, err := run(t, exportCmd)
	assert.ErrorIs(t, err, export.ErrUnknownFormat)
}

func TestCaldavSyncCmd_NotConfigured(t *testing.T) {
	setupLocalModeTestApp(t)
	resetFlags()

	_, err := run(t, caldavSyncCmd)
	assert.ErrorContains(t, err, "CALDAV_URL")
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCmd_PrintsLiveChanges(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)

	// A second session writes through the change feed.
	sess, err := app.Container.Sessions.Load()
	require.NoError(t, err)
	other, err := app.Container.OpenWorkspace(context.Background(), sess)
	require.NoError(t, err)
	t.Cleanup(other.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out lockedBuffer
	watchCmd.SetOut(&out)
	watchCmd.SetContext(ctx)
	done := make(chan error, 1)
	go func() { done <- watchCmd.RunE(watchCmd, nil) }()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Today (") }, 2*time.Second, 10*time.Millisecond)

	_, err = other.AddTask.Handle(context.Background(), commands.AddTaskCommand{Title: "Feed cat", Date: today()})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Feed cat")
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return len(ws.Engine.Snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestResolveID(t *testing.T) {
	a := domain.Task{ID: uuid.MustParse("aaaa1111-0000-0000-0000-000000000000")}
	b := domain.Task{ID: uuid.MustParse("aaaa2222-0000-0000-0000-000000000000")}
	tasks := []domain.Task{a, b}

	id, err := resolveID("aaaa1", tasks)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)

	_, err = resolveID("aaaa", tasks)
	assert.ErrorIs(t, err, errAmbiguousID)

	_, err = resolveID("bbbb", tasks)
	assert.Error(t, err)

	id, err = resolveID(b.ID.String(), nil)
	require.NoError(t, err)
	assert.Equal(t, b.ID, id)
}

func TestTodayCmd_RefreshPicksUpUnnotifiedWrites(t *testing.T) {
	app := setupLocalModeTestApp(t)
	resetFlags()
	ws := workspace(t, app)

	// Written past the change feed, so only a reload sees it.
	base, err := internalApp.NewRepositoryFactory(app.Container.DBConn).TaskRepository()
	require.NoError(t, err)
	_, err = base.Create(context.Background(), domain.Task{
		ProfileID: ws.Session.ProfileID,
		Title:     "Written elsewhere",
		Date:      today(),
		Kind:      domain.KindTask,
		Priority:  domain.PriorityMedium,
	})
	require.NoError(t, err)

	out, err := run(t, todayCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing due today.")

	todayRefresh = true
	out, err = run(t, todayCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Written elsewhere")
}

func TestWatchCmd_HelpNamesSharedFeeds(t *testing.T) {
	assert.Contains(t, watchCmd.Long, "LAKRON_CHANGEFEED")
	assert.NotContains(t, watchCmd.Long, "another session")
}
