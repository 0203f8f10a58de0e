package changefeed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/felixgeelhaar/lakron/internal/schedule/application/reconcile"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// NotifyChannel is the channel the tasks_notify trigger publishes on.
const NotifyChannel = "task_changes"

var (
	// ErrListenerLost is reported when the LISTEN connection drops. The
	// engine's subscription retries with a fresh listener.
	ErrListenerLost = errors.New("postgres listener connection lost")
	// ErrListenerConnect is returned by Subscribe when the listener cannot
	// reach the database.
	ErrListenerConnect = errors.New("postgres listener could not connect")
)

// TaskFinder reads a task row back after a notification names it.
type TaskFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (domain.Task, error)
}

// PostgresFeed subscribes to task changes with LISTEN/NOTIFY. Each
// subscription holds its own listener connection and filters by profile.
type PostgresFeed struct {
	dsn          string
	tasks        TaskFinder
	minReconnect time.Duration
	maxReconnect time.Duration
	logger       *slog.Logger
}

// NewPostgresFeed creates a feed for the database at dsn. Inserted and
// updated rows are read through tasks.
func NewPostgresFeed(dsn string, tasks TaskFinder, logger *slog.Logger) *PostgresFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFeed{
		dsn:          dsn,
		tasks:        tasks,
		minReconnect: time.Second,
		maxReconnect: 10 * time.Second,
		logger:       logger,
	}
}

// Subscribe starts listening and returns once the LISTEN is in place. It
// fails when the first connection attempt fails or ctx ends first.
func (f *PostgresFeed) Subscribe(ctx context.Context, profileID uuid.UUID) (reconcile.Stream, error) {
	log := f.logger.With("profile_id", profileID)
	lost := make(chan error, 1)
	failed := make(chan error, 1)

	listener := pq.NewListener(f.dsn, f.minReconnect, f.maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			log.Warn("postgres listener disconnected", "error", err)
			select {
			case lost <- fmt.Errorf("%w: %v", ErrListenerLost, err):
			default:
			}
		case pq.ListenerEventConnectionAttemptFailed:
			log.Debug("postgres listener connection attempt failed", "error", err)
			select {
			case failed <- fmt.Errorf("%w: %v", ErrListenerConnect, err):
			default:
			}
		}
	})

	// Listen blocks until the listener connects and ignores ctx. Closing the
	// listener releases it.
	listened := make(chan error, 1)
	go func() { listened <- listener.Listen(NotifyChannel) }()

	select {
	case err := <-listened:
		if err != nil {
			_ = listener.Close()
			return nil, fmt.Errorf("listen %s: %w", NotifyChannel, err)
		}
	case err := <-failed:
		_ = listener.Close()
		return nil, err
	case <-ctx.Done():
		_ = listener.Close()
		return nil, fmt.Errorf("listen %s: %w", NotifyChannel, ctx.Err())
	}

	s := &pgStream{
		feed:      f,
		listener:  listener,
		profileID: profileID,
		events:    make(chan domain.ChangeEvent),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.run(ctx, lost, log)
	return s, nil
}

// resolve turns a notification into a change event. Deletes carry only the
// id. For inserts and updates the row is read back; a row that is already
// gone is skipped.
func (f *PostgresFeed) resolve(ctx context.Context, n notification) (domain.ChangeEvent, bool, error) {
	if n.Kind == domain.ChangeDelete {
		return domain.ChangeEvent{
			Kind:   n.Kind,
			Record: domain.Task{ID: n.ID, ProfileID: n.ProfileID},
		}, true, nil
	}

	task, err := f.tasks.FindByID(ctx, n.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ChangeEvent{}, false, nil
	}
	if err != nil {
		return domain.ChangeEvent{}, false, fmt.Errorf("read changed task %s: %w", n.ID, err)
	}
	return domain.ChangeEvent{Kind: n.Kind, Record: task}, true, nil
}

type pgStream struct {
	feed      *PostgresFeed
	listener  *pq.Listener
	profileID uuid.UUID
	events    chan domain.ChangeEvent
	stop      chan struct{}
	done      chan struct{}
	err       error
}

func (s *pgStream) Events() <-chan domain.ChangeEvent { return s.events }

// Err is safe to call once Events is closed.
func (s *pgStream) Err() error { return s.err }

func (s *pgStream) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
	return nil
}

func (s *pgStream) run(ctx context.Context, lost <-chan error, log *slog.Logger) {
	defer close(s.done)
	defer close(s.events)
	defer func() { _ = s.listener.Close() }()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		case err := <-lost:
			s.err = err
			return
		case n, ok := <-s.listener.Notify:
			if !ok {
				s.err = ErrListenerLost
				return
			}
			if n == nil {
				continue
			}
			note, err := decodeNotification(n.Extra)
			if err != nil {
				log.Warn("dropping undecodable notification", "error", err)
				continue
			}
			if note.ProfileID != s.profileID {
				continue
			}
			// A failed read ends the stream so the subscriber reconnects
			// and reloads instead of missing the change.
			ev, ok, err := s.feed.resolve(ctx, note)
			if err != nil {
				s.err = err
				return
			}
			if !ok {
				continue
			}
			select {
			case s.events <- ev:
			case <-s.stop:
				return
			case <-ctx.Done():
				s.err = ctx.Err()
				return
			}
		}
	}
}
