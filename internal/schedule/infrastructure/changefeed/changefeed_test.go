package changefeed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/lakron/internal/schedule/application/reconcile"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// stubRepo is a map-backed domain.Repository.
type stubRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]domain.Task
}

func newStubRepo() *stubRepo {
	return &stubRepo{tasks: make(map[uuid.UUID]domain.Task)}
}

func (r *stubRepo) ListByProfile(_ context.Context, profileID uuid.UUID) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Task
	for _, t := range r.tasks {
		if t.ProfileID == profileID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *stubRepo) FindByID(_ context.Context, id uuid.UUID) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, nil
}

func (r *stubRepo) Create(_ context.Context, task domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = uuid.New()
	task.CreatedAt = time.Now().UTC()
	r.tasks[task.ID] = task
	return task, nil
}

func (r *stubRepo) Update(_ context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, domain.ErrNotFound
	}
	t = patch.Apply(t)
	r.tasks[id] = t
	return t, nil
}

func (r *stubRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	return m.Called(ctx, routingKey, payload).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

func nextEvent(t *testing.T, stream reconcile.Stream) domain.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-stream.Events():
		require.True(t, ok, "stream closed: %v", stream.Err())
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for change")
		return domain.ChangeEvent{}
	}
}

func TestDecode(t *testing.T) {
	id, profile := uuid.New(), uuid.New()
	body, err := Encode(domain.ChangeEvent{
		Kind:   domain.ChangeUpdate,
		Record: domain.Task{ID: id, ProfileID: profile, Title: "x", Recurring: true, RecurrenceRule: domain.RuleDaily, CompletedDates: []string{"2024-03-05"}},
	})
	require.NoError(t, err)

	ev, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeUpdate, ev.Kind)
	assert.Equal(t, id, ev.Record.ID)
	assert.Equal(t, []string{"2024-03-05"}, ev.Record.CompletedDates)

	_, err = Decode([]byte(`{"kind":"upsert","record":{"id":"` + id.String() + `"}}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`{"kind":"insert","record":{}}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeNotification(t *testing.T) {
	payload := `{"kind":"update","id":"6f1c2a3e-0000-4000-8000-0000000000aa","profile_id":"6f1c2a3e-0000-4000-8000-000000000001"}`

	n, err := decodeNotification(payload)
	require.NoError(t, err)
	assert.Equal(t, domain.ChangeUpdate, n.Kind)
	assert.Equal(t, "6f1c2a3e-0000-4000-8000-0000000000aa", n.ID.String())
	assert.Equal(t, "6f1c2a3e-0000-4000-8000-000000000001", n.ProfileID.String())

	_, err = decodeNotification(`{"kind":"truncate","id":"6f1c2a3e-0000-4000-8000-0000000000aa"}`)
	assert.Error(t, err)
	_, err = decodeNotification(`{"kind":"insert"}`)
	assert.Error(t, err)
}

func TestPostgresFeed_ResolveReadsRowBack(t *testing.T) {
	ctx := context.Background()
	repo := newStubRepo()
	profile := uuid.New()
	dates := make([]string, 0, 800)
	day := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 800 {
		dates = append(dates, domain.FormatDay(day.AddDate(0, 0, i)))
	}
	stored, err := repo.Create(ctx, domain.Task{
		ProfileID:      profile,
		Title:          "Stretch",
		Recurring:      true,
		RecurrenceRule: domain.RuleDaily,
		CompletedDates: dates,
	})
	require.NoError(t, err)

	feed := NewPostgresFeed("postgres://unused", repo, nil)

	ev, ok, err := feed.resolve(ctx, notification{Kind: domain.ChangeUpdate, ID: stored.ID, ProfileID: profile})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ChangeUpdate, ev.Kind)
	assert.Equal(t, "Stretch", ev.Record.Title)
	assert.Len(t, ev.Record.CompletedDates, 800)

	// The row is gone by the time the update is read.
	_, ok, err = feed.resolve(ctx, notification{Kind: domain.ChangeUpdate, ID: uuid.New(), ProfileID: profile})
	require.NoError(t, err)
	assert.False(t, ok)

	gone := uuid.New()
	ev, ok, err = feed.resolve(ctx, notification{Kind: domain.ChangeDelete, ID: gone, ProfileID: profile})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.ChangeDelete, ev.Kind)
	assert.Equal(t, gone, ev.Record.ID)
}

type failingFinder struct{}

func (failingFinder) FindByID(context.Context, uuid.UUID) (domain.Task, error) {
	return domain.Task{}, errors.New("connection reset")
}

func TestPostgresFeed_ResolveReportsReadFailure(t *testing.T) {
	feed := NewPostgresFeed("postgres://unused", failingFinder{}, nil)

	_, ok, err := feed.resolve(context.Background(), notification{Kind: domain.ChangeInsert, ID: uuid.New()})
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPostgresFeed_SubscribeUnreachable(t *testing.T) {
	feed := NewPostgresFeed("postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1", newStubRepo(), nil)

	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{
			name: "cancelled context",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
		},
		{
			name: "live context",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 30*time.Second)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			type result struct {
				stream reconcile.Stream
				err    error
			}
			done := make(chan result, 1)
			go func() {
				stream, err := feed.Subscribe(ctx, uuid.New())
				done <- result{stream, err}
			}()

			select {
			case r := <-done:
				assert.Error(t, r.err)
				assert.Nil(t, r.stream)
			case <-time.After(5 * time.Second):
				t.Fatal("Subscribe did not return for an unreachable database")
			}
		})
	}
}

func TestPublishingRepository_FeedsBusSubscribers(t *testing.T) {
	ctx := context.Background()
	bus := eventbus.NewInProcessBus(nil)
	defer bus.Close()
	metrics := observability.NewInMemoryMetrics()

	repo := NewPublishingRepository(newStubRepo(), bus, nil, metrics)
	feed := NewBusFeed(bus, nil)

	profile := uuid.New()
	stream, err := feed.Subscribe(ctx, profile)
	require.NoError(t, err)
	defer stream.Close()

	otherStream, err := feed.Subscribe(ctx, uuid.New())
	require.NoError(t, err)
	defer otherStream.Close()

	task, err := domain.NewTask(profile, "Stretch", "2024-03-05")
	require.NoError(t, err)
	created, err := repo.Create(ctx, task)
	require.NoError(t, err)

	done := true
	_, err = repo.Update(ctx, created.ID, domain.Patch{Completed: &done})
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, created.ID))

	ev := nextEvent(t, stream)
	assert.Equal(t, domain.ChangeInsert, ev.Kind)
	assert.Equal(t, "Stretch", ev.Record.Title)

	ev = nextEvent(t, stream)
	assert.Equal(t, domain.ChangeUpdate, ev.Kind)
	assert.True(t, ev.Record.Completed)

	ev = nextEvent(t, stream)
	assert.Equal(t, domain.ChangeDelete, ev.Kind)
	assert.Equal(t, created.ID, ev.Record.ID)

	select {
	case ev := <-otherStream.Events():
		t.Fatalf("foreign profile received %v", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}

	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricEventsPublished, observability.T("kind", "insert")))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricEventsPublished, observability.T("kind", "delete")))
}

func TestPublishingRepository_PublishFailureKeepsWrite(t *testing.T) {
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.Anything).Return(errors.New("broker down"))

	inner := newStubRepo()
	repo := NewPublishingRepository(inner, pub, nil, nil)

	task, err := domain.NewTask(uuid.New(), "Call mom", "2024-03-05")
	require.NoError(t, err)
	created, err := repo.Create(context.Background(), task)
	require.NoError(t, err)

	_, err = inner.FindByID(context.Background(), created.ID)
	assert.NoError(t, err)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestPublishingRepository_DeleteUnknownDoesNotPublish(t *testing.T) {
	pub := new(mockPublisher)
	repo := NewPublishingRepository(newStubRepo(), pub, nil, nil)

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestBusFeed_StreamEndsWithBus(t *testing.T) {
	bus := eventbus.NewInProcessBus(nil)
	feed := NewBusFeed(bus, nil)

	stream, err := feed.Subscribe(context.Background(), uuid.New())
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	select {
	case _, ok := <-stream.Events():
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed")
	}
	assert.ErrorIs(t, stream.Err(), eventbus.ErrClosed)
	assert.NoError(t, stream.Close())
}
