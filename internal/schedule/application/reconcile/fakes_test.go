package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

var errConnRefused = errors.New("connection refused")

// memRepo is an in-memory task store with hooks for ordering tests.
type memRepo struct {
	mu        sync.Mutex
	tasks     []domain.Task
	listErr   error
	listCalls int
	created   []domain.Task
	deleted   []uuid.UUID

	// listEntered receives the profile id when ListByProfile starts.
	listEntered chan uuid.UUID
	// listGate, when set, blocks ListByProfile until closed.
	listGate chan struct{}
}

func (r *memRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Task, error) {
	r.mu.Lock()
	r.listCalls++
	entered, gate := r.listEntered, r.listGate
	r.mu.Unlock()

	if entered != nil {
		entered <- profileID
	}
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Task
	for _, t := range r.tasks {
		if t.ProfileID == profileID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, errors.New("not found")
}

func (r *memRepo) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task.ID = uuid.New()
	task.CreatedAt = time.Now()
	r.tasks = append(r.tasks, task)
	r.created = append(r.created, task)
	return task, nil
}

func (r *memRepo) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, t := range r.tasks {
		if t.ID == id {
			r.tasks[i] = patch.Apply(t)
			return r.tasks[i], nil
		}
	}
	return domain.Task{}, errors.New("not found")
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	for i, t := range r.tasks {
		if t.ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCalls
}

// mockRepo is a testify mock of domain.Repository.
type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) ListByProfile(ctx context.Context, profileID uuid.UUID) ([]domain.Task, error) {
	args := m.Called(ctx, profileID)
	tasks, _ := args.Get(0).([]domain.Task)
	return tasks, args.Error(1)
}

func (m *mockRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, task domain.Task) (domain.Task, error) {
	args := m.Called(ctx, task)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, id uuid.UUID, patch domain.Patch) (domain.Task, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.Task), args.Error(1)
}

func (m *mockRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type fakeStream struct {
	events    chan domain.ChangeEvent
	err       error
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		events: make(chan domain.ChangeEvent, 16),
		closed: make(chan struct{}),
	}
}

func (s *fakeStream) Events() <-chan domain.ChangeEvent { return s.events }
func (s *fakeStream) Err() error                        { return s.err }

func (s *fakeStream) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// fail ends the stream with err.
func (s *fakeStream) fail(err error) {
	s.err = err
	close(s.events)
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

// fakeFeed hands out fakeStreams, failing the first `failures` calls.
type fakeFeed struct {
	mu         sync.Mutex
	failures   int
	alwaysFail bool
	calls      int
	profiles   []uuid.UUID
	streams    chan *fakeStream
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{streams: make(chan *fakeStream, 16)}
}

func (f *fakeFeed) Subscribe(ctx context.Context, profileID uuid.UUID) (Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.profiles = append(f.profiles, profileID)
	if f.alwaysFail {
		return nil, errConnRefused
	}
	if f.failures > 0 {
		f.failures--
		return nil, errConnRefused
	}
	s := newFakeStream()
	f.streams <- s
	return s, nil
}

func (f *fakeFeed) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *recordingSleep) recorded() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// prefixCipher marks ciphertext with an "enc:" prefix.
type prefixCipher struct{}

func (prefixCipher) Encrypt(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	return "enc:" + s, nil
}

func (prefixCipher) Decrypt(s string) string {
	if rest, ok := strings.CutPrefix(s, "enc:"); ok {
		return rest
	}
	return s
}

func fixedClock(s string) func() time.Time {
	d, err := domain.ParseDay(s, time.UTC)
	if err != nil {
		panic(err)
	}
	at := d.Add(9 * time.Hour)
	return func() time.Time { return at }
}

// movableClock is a clock tests can advance.
type movableClock struct {
	mu sync.Mutex
	at time.Time
}

func (c *movableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.at
}

func (c *movableClock) Set(t time.Time) {
	c.mu.Lock()
	c.at = t
	c.mu.Unlock()
}
