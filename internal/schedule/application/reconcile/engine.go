package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/application/services"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/pkg/observability"
)

var (
	ErrNoProfile    = errors.New("no active profile")
	ErrNotReady     = errors.New("task collection is still loading")
	ErrTaskNotFound = errors.New("task not in today's collection")
)

// State is the lifecycle state of the task collection.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateReady
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Config holds the engine's collaborators.
type Config struct {
	Repo    domain.Repository
	Feed    Feed
	Cipher  Cipher
	Retry   RetryPolicy
	Now     func() time.Time
	Sleep   SleepFunc
	Logger  *slog.Logger
	Metrics observability.Metrics
}

// Status is a point-in-time view of the engine.
type Status struct {
	State        State
	ProfileID    uuid.UUID
	Size         int
	Subscription SubscriptionState
	Retries      int
}

// Engine owns the task collection of the active profile. Every mutation,
// whether from the bulk load, a live notification or a local toggle, goes
// through mu so they apply one at a time against the current collection.
type Engine struct {
	repo         domain.Repository
	feed         Feed
	cipher       Cipher
	materializer *services.Materializer
	retry        RetryPolicy
	now          func() time.Time
	sleep        SleepFunc
	logger       *slog.Logger
	metrics      observability.Metrics

	mu         sync.Mutex
	state      State
	profileID  uuid.UUID
	generation uint64
	loadSeq    uint64
	version    uint64
	tasks      []domain.Task
	pending    []domain.ChangeEvent
	sub        *Subscription

	notifyMu     sync.Mutex
	delivered    uint64
	queued       uint64
	queuedSnap   []domain.Task
	delivering   bool
	listeners    map[int]func([]domain.Task)
	nextListener int
}

// NewEngine creates an engine in the Empty state.
func NewEngine(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}

	var decrypter services.Decrypter
	if cfg.Cipher != nil {
		decrypter = cfg.Cipher
	}

	return &Engine{
		repo:         cfg.Repo,
		feed:         cfg.Feed,
		cipher:       cfg.Cipher,
		materializer: services.NewMaterializer(decrypter),
		retry:        cfg.Retry,
		now:          cfg.Now,
		sleep:        cfg.Sleep,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		listeners:    make(map[int]func([]domain.Task)),
	}
}

// SetProfile switches the engine to profileID, or to the Empty state when
// profileID is uuid.Nil. The previous profile's subscription is released
// before anything is read for the new one. Asking again for the profile that
// is already active is a no-op. A failed bulk load leaves an empty, ready
// collection that still receives live updates.
func (e *Engine) SetProfile(ctx context.Context, profileID uuid.UUID) {
	e.mu.Lock()
	if profileID != uuid.Nil && profileID == e.profileID && e.state != StateEmpty {
		e.mu.Unlock()
		return
	}

	old := e.sub
	e.sub = nil
	e.generation++
	gen := e.generation
	e.profileID = profileID
	e.tasks = nil
	e.pending = nil
	if profileID == uuid.Nil {
		e.state = StateEmpty
	} else {
		e.state = StateLoading
	}
	version, snap := e.commitLocked()
	e.mu.Unlock()

	if old != nil {
		old.Close()
	}
	e.publish(version, snap)

	if profileID == uuid.Nil {
		e.logger.Info("task collection cleared")
		return
	}

	if e.feed != nil {
		sub := startSubscription(context.WithoutCancel(ctx), subscriptionConfig{
			ProfileID: profileID,
			Feed:      e.feed,
			Handler:   func(ev domain.ChangeEvent) { e.apply(gen, ev) },
			Policy:    e.retry,
			Sleep:     e.sleep,
			Logger:    e.logger,
			OnRetry: func(int) {
				e.metrics.Counter(observability.MetricSubscriptionRetries, 1)
			},
			// Changes written while the stream was down never arrive as
			// events, so a resumed stream reloads the collection.
			OnActive: func(ctx context.Context, resumed bool) {
				if !resumed {
					return
				}
				if err := e.resync(ctx, gen); err != nil {
					e.logger.Warn("reload after reconnect failed",
						"profile_id", profileID,
						"error", err,
					)
				}
			},
		})

		e.mu.Lock()
		if gen == e.generation {
			e.sub = sub
			sub = nil
		}
		e.mu.Unlock()
		if sub != nil {
			sub.Close()
		}
	}

	if err := e.reload(ctx, gen); err != nil {
		e.logger.Warn("bulk load failed, showing empty collection",
			"profile_id", profileID,
			"error", err,
		)
	}
}

// Refresh reloads the collection of the active profile. Live events that
// arrive during the reload are applied after it. Without an active profile it
// returns ErrNoProfile.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.profileID == uuid.Nil {
		e.mu.Unlock()
		return ErrNoProfile
	}
	gen := e.generation
	e.mu.Unlock()

	return e.resync(ctx, gen)
}

// resync reloads generation gen, holding live events back until the load lands.
func (e *Engine) resync(ctx context.Context, gen uint64) error {
	e.mu.Lock()
	if gen != e.generation || e.state == StateEmpty {
		e.mu.Unlock()
		return nil
	}
	e.state = StateLoading
	e.mu.Unlock()

	return e.reload(ctx, gen)
}

func (e *Engine) reload(ctx context.Context, gen uint64) error {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return nil
	}
	e.loadSeq++
	seq := e.loadSeq
	profileID := e.profileID
	e.mu.Unlock()

	start := time.Now()
	raws, err := e.repo.ListByProfile(ctx, profileID)
	e.metrics.Timing(observability.MetricLoadDuration, time.Since(start))

	e.mu.Lock()
	if gen != e.generation || seq != e.loadSeq {
		e.mu.Unlock()
		return nil
	}

	var loaded []domain.Task
	if err != nil {
		e.metrics.Counter(observability.MetricLoadFailures, 1)
		loaded = []domain.Task{}
	} else {
		loaded = e.materializer.MaterializeAll(raws, e.now())
	}

	pending := e.pending
	e.pending = nil
	for _, ev := range pending {
		loaded = e.applyEvent(loaded, ev)
	}
	e.tasks = loaded
	e.state = StateReady
	version, snap := e.commitLocked()
	e.mu.Unlock()

	e.publish(version, snap)

	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	e.logger.Info("task collection loaded",
		"profile_id", profileID,
		"count", len(snap),
		"replayed", len(pending),
	)
	return nil
}

// Apply merges one change notification into the collection.
func (e *Engine) Apply(ev domain.ChangeEvent) {
	e.mu.Lock()
	gen := e.generation
	e.mu.Unlock()
	e.apply(gen, ev)
}

func (e *Engine) apply(gen uint64, ev domain.ChangeEvent) {
	e.mu.Lock()
	if gen != e.generation || e.state == StateEmpty {
		e.mu.Unlock()
		return
	}
	if ev.Record.ProfileID != uuid.Nil && ev.Record.ProfileID != e.profileID {
		e.mu.Unlock()
		e.metrics.Counter(observability.MetricSyncEventsIgnored, 1)
		return
	}
	if e.state == StateLoading {
		e.pending = append(e.pending, ev)
		e.mu.Unlock()
		return
	}

	e.tasks = e.applyEvent(e.tasks, ev)
	version, snap := e.commitLocked()
	e.mu.Unlock()

	e.publish(version, snap)
}

// applyEvent returns the collection after ev. The input slice is never
// modified so published snapshots stay stable.
func (e *Engine) applyEvent(tasks []domain.Task, ev domain.ChangeEvent) []domain.Task {
	idx := indexOf(tasks, ev.Record.ID)

	switch ev.Kind {
	case domain.ChangeInsert:
		if idx >= 0 {
			e.metrics.Counter(observability.MetricSyncEventsIgnored, 1)
			return tasks
		}
		task, visible := e.materializer.Materialize(ev.Record, e.now())
		if !visible {
			e.metrics.Counter(observability.MetricSyncEventsIgnored, 1)
			return tasks
		}
		e.metrics.Counter(observability.MetricSyncEventsApplied, 1)
		return append(slices.Clip(tasks), task)

	case domain.ChangeUpdate:
		task, visible := e.materializer.Materialize(ev.Record, e.now())
		e.metrics.Counter(observability.MetricSyncEventsApplied, 1)
		switch {
		case visible && idx >= 0:
			out := slices.Clone(tasks)
			out[idx] = task
			return out
		case visible:
			return append(slices.Clip(tasks), task)
		case idx >= 0:
			return slices.Delete(slices.Clone(tasks), idx, idx+1)
		default:
			return tasks
		}

	case domain.ChangeDelete:
		if idx < 0 {
			e.metrics.Counter(observability.MetricSyncEventsIgnored, 1)
			return tasks
		}
		e.metrics.Counter(observability.MetricSyncEventsApplied, 1)
		return slices.Delete(slices.Clone(tasks), idx, idx+1)

	default:
		e.logger.Warn("ignoring change with unknown kind", "kind", ev.Kind, "task_id", ev.Record.ID)
		return tasks
	}
}

// Toggle flips the completion of a task for today. The collection is updated
// before the store write; if the write fails the entry is restored and the
// error returned. Recurring tasks not due today yield domain.ErrNotDue.
func (e *Engine) Toggle(ctx context.Context, id uuid.UUID) (domain.Task, error) {
	e.mu.Lock()
	if e.state == StateEmpty {
		e.mu.Unlock()
		return domain.Task{}, ErrNoProfile
	}
	if e.state != StateReady {
		e.mu.Unlock()
		return domain.Task{}, ErrNotReady
	}
	idx := indexOf(e.tasks, id)
	if idx < 0 {
		profileID := e.profileID
		e.mu.Unlock()
		return domain.Task{}, e.explainMissing(ctx, profileID, id)
	}

	before := e.tasks[idx]
	toggle, err := domain.ToggleOn(before, e.now())
	if err != nil {
		e.mu.Unlock()
		return before, err
	}

	after := before
	after.Completed = toggle.Completed
	if before.Recurring {
		after.CompletedDates = toggle.CompletedDates
	}

	tasks := slices.Clone(e.tasks)
	tasks[idx] = after
	e.tasks = tasks
	gen := e.generation
	version, snap := e.commitLocked()
	e.mu.Unlock()
	e.publish(version, snap)

	if _, err := e.repo.Update(ctx, id, domain.PatchFromToggle(before, toggle)); err != nil {
		e.revert(gen, before, after)
		return before, fmt.Errorf("toggle task %s: %w", id, err)
	}
	return after, nil
}

// explainMissing reports why id is not in the collection. A stored recurring
// task that is not due today gets domain.ErrNotDue.
func (e *Engine) explainMissing(ctx context.Context, profileID, id uuid.UUID) error {
	stored, err := e.repo.FindByID(ctx, id)
	if err != nil || stored.ProfileID != profileID {
		return ErrTaskNotFound
	}
	if _, err := domain.ToggleOn(stored, e.now()); errors.Is(err, domain.ErrNotDue) {
		return err
	}
	return ErrTaskNotFound
}

// revert restores before unless the entry has moved on since the optimistic write.
func (e *Engine) revert(gen uint64, before, after domain.Task) {
	e.mu.Lock()
	idx := indexOf(e.tasks, before.ID)
	if gen != e.generation || idx < 0 || !sameCompletion(e.tasks[idx], after) {
		e.mu.Unlock()
		return
	}
	tasks := slices.Clone(e.tasks)
	tasks[idx] = before
	e.tasks = tasks
	version, snap := e.commitLocked()
	e.mu.Unlock()

	e.metrics.Counter(observability.MetricToggleReverted, 1)
	e.publish(version, snap)
}

// Add stores a new task for the active profile and merges it locally.
// Text fields are encrypted before they reach the store.
func (e *Engine) Add(ctx context.Context, task domain.Task) (domain.Task, error) {
	e.mu.Lock()
	profileID := e.profileID
	gen := e.generation
	e.mu.Unlock()
	if profileID == uuid.Nil {
		return domain.Task{}, ErrNoProfile
	}

	task.ProfileID = profileID
	sealed, err := e.seal(task)
	if err != nil {
		return domain.Task{}, err
	}

	stored, err := e.repo.Create(ctx, sealed)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}

	e.apply(gen, domain.ChangeEvent{Kind: domain.ChangeInsert, Record: stored})

	view, _ := e.materializer.Materialize(stored, e.now())
	return view, nil
}

// Delete removes a task from the store and from the collection.
func (e *Engine) Delete(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	profileID := e.profileID
	gen := e.generation
	e.mu.Unlock()
	if profileID == uuid.Nil {
		return ErrNoProfile
	}

	if err := e.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	e.apply(gen, domain.ChangeEvent{
		Kind:   domain.ChangeDelete,
		Record: domain.Task{ID: id, ProfileID: profileID},
	})
	return nil
}

// All returns every task of the active profile, decrypted and with completion
// derived for today, including recurring tasks not due today. It reads the
// store directly and does not touch the collection.
func (e *Engine) All(ctx context.Context) ([]domain.Task, error) {
	e.mu.Lock()
	profileID := e.profileID
	e.mu.Unlock()
	if profileID == uuid.Nil {
		return nil, ErrNoProfile
	}

	raws, err := e.repo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	today := e.now()
	out := make([]domain.Task, 0, len(raws))
	for _, raw := range raws {
		task, _ := e.materializer.Materialize(raw, today)
		out = append(out, task)
	}
	return out, nil
}

func (e *Engine) seal(task domain.Task) (domain.Task, error) {
	if e.cipher == nil {
		return task, nil
	}
	title, err := e.cipher.Encrypt(task.Title)
	if err != nil {
		return domain.Task{}, fmt.Errorf("encrypt title: %w", err)
	}
	desc, err := e.cipher.Encrypt(task.Description)
	if err != nil {
		return domain.Task{}, fmt.Errorf("encrypt description: %w", err)
	}
	task.Title = title
	task.Description = desc
	return task, nil
}

// Snapshot returns the current collection.
func (e *Engine) Snapshot() []domain.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.tasks)
}

// Status reports the collection and subscription state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	status := Status{
		State:        e.state,
		ProfileID:    e.profileID,
		Size:         len(e.tasks),
		Subscription: SubscriptionClosed,
	}
	sub := e.sub
	e.mu.Unlock()

	if sub != nil {
		status.Subscription = sub.State()
		status.Retries = sub.Retries()
	}
	return status
}

// OnChange registers fn to receive every new collection snapshot. Snapshots
// are delivered in commit order, one at a time; a snapshot superseded before
// delivery is skipped. fn may call back into the engine: a change it makes is
// delivered once fn returns. The returned func unregisters fn.
func (e *Engine) OnChange(fn func([]domain.Task)) func() {
	e.notifyMu.Lock()
	id := e.nextListener
	e.nextListener++
	e.listeners[id] = fn
	e.notifyMu.Unlock()

	return func() {
		e.notifyMu.Lock()
		delete(e.listeners, id)
		e.notifyMu.Unlock()
	}
}

// Close releases the subscription and empties the collection.
func (e *Engine) Close() {
	e.SetProfile(context.Background(), uuid.Nil)
}

// commitLocked stamps a new version of the collection. e.mu must be held.
func (e *Engine) commitLocked() (uint64, []domain.Task) {
	e.version++
	e.metrics.Gauge(observability.MetricCollectionSize, float64(len(e.tasks)))
	return e.version, slices.Clone(e.tasks)
}

// publish queues snap for the listeners. Whoever finds no delivery running
// delivers, draining the queue until it holds nothing newer. Listeners run
// without notifyMu held.
func (e *Engine) publish(version uint64, snap []domain.Task) {
	e.notifyMu.Lock()
	if version <= e.delivered || version <= e.queued {
		e.notifyMu.Unlock()
		return
	}
	e.queued, e.queuedSnap = version, snap
	if e.delivering {
		e.notifyMu.Unlock()
		return
	}
	e.delivering = true

	for e.queued > e.delivered {
		snap := e.queuedSnap
		e.delivered = e.queued
		e.queuedSnap = nil
		keys := slices.Sorted(maps.Keys(e.listeners))
		fns := make([]func([]domain.Task), 0, len(keys))
		for _, k := range keys {
			fns = append(fns, e.listeners[k])
		}
		e.notifyMu.Unlock()

		for _, fn := range fns {
			fn(snap)
		}

		e.notifyMu.Lock()
	}
	e.delivering = false
	e.notifyMu.Unlock()
}

func indexOf(tasks []domain.Task, id uuid.UUID) int {
	return slices.IndexFunc(tasks, func(t domain.Task) bool { return t.ID == id })
}

func sameCompletion(a, b domain.Task) bool {
	return a.Completed == b.Completed && slices.Equal(a.CompletedDates, b.CompletedDates)
}
