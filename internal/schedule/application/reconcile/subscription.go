package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
)

// ErrStreamEnded is reported when a feed closes its stream without an error.
var ErrStreamEnded = errors.New("change stream ended")

// SubscriptionState is the lifecycle state of a live subscription.
type SubscriptionState int

const (
	SubscriptionConnecting SubscriptionState = iota
	SubscriptionActive
	SubscriptionRetrying
	SubscriptionClosed
)

// String returns the state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionConnecting:
		return "connecting"
	case SubscriptionActive:
		return "active"
	case SubscriptionRetrying:
		return "retrying"
	case SubscriptionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// RetryPolicy bounds resubscription after transport errors.
type RetryPolicy struct {
	// MaxAttempts is the number of retries after a failure. Zero disables retry.
	MaxAttempts int
	// Backoff is multiplied by the attempt number to get the delay.
	Backoff time.Duration
}

// DefaultRetryPolicy retries three times after 2s, 4s and 6s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Backoff: 2 * time.Second}
}

// Delay returns the wait before the given retry attempt, starting at 1.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.Backoff
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type subscriptionConfig struct {
	ProfileID uuid.UUID
	Feed      Feed
	Handler   func(domain.ChangeEvent)
	Policy    RetryPolicy
	Sleep     SleepFunc
	Logger    *slog.Logger
	OnRetry   func(attempt int)
	// OnActive runs each time a stream is established, before its events
	// are read. resumed is false only for a first connect at the first try.
	OnActive func(ctx context.Context, resumed bool)
}

// Subscription owns one live change stream for a profile, resubscribing
// after transport errors until its retry budget is spent.
type Subscription struct {
	cfg    subscriptionConfig
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	state    SubscriptionState
	retries  int
	connects int
}

func startSubscription(ctx context.Context, cfg subscriptionConfig) *Subscription {
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		cfg:    cfg,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  SubscriptionConnecting,
	}
	go s.run(ctx)
	return s
}

// State returns the current lifecycle state.
func (s *Subscription) State() SubscriptionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Retries returns the retries spent since the last successful connect.
func (s *Subscription) Retries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// Done is closed once the subscription has stopped for good.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription and waits for its goroutine to exit.
func (s *Subscription) Close() {
	s.cancel()
	<-s.done
}

func (s *Subscription) setState(state SubscriptionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(SubscriptionClosed)

	log := s.cfg.Logger.With("profile_id", s.cfg.ProfileID)

	for {
		s.setState(SubscriptionConnecting)
		err := s.consume(ctx)
		if ctx.Err() != nil {
			return
		}

		s.mu.Lock()
		if s.retries >= s.cfg.Policy.MaxAttempts {
			s.mu.Unlock()
			log.Warn("change feed unavailable, live updates stopped",
				"attempts", s.cfg.Policy.MaxAttempts,
				"error", err,
			)
			return
		}
		s.retries++
		attempt := s.retries
		s.state = SubscriptionRetrying
		s.mu.Unlock()

		if s.cfg.OnRetry != nil {
			s.cfg.OnRetry(attempt)
		}
		delay := s.cfg.Policy.Delay(attempt)
		log.Warn("change feed error, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if err := s.cfg.Sleep(ctx, delay); err != nil {
			return
		}
	}
}

func (s *Subscription) consume(ctx context.Context) error {
	stream, err := s.cfg.Feed.Subscribe(ctx, s.cfg.ProfileID)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	s.mu.Lock()
	resumed := s.connects > 0 || s.retries > 0
	s.connects++
	s.state = SubscriptionActive
	s.retries = 0
	s.mu.Unlock()

	if s.cfg.OnActive != nil {
		s.cfg.OnActive(ctx, resumed)
	}

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if err := stream.Err(); err != nil {
					return err
				}
				return ErrStreamEnded
			}
			s.cfg.Handler(ev)
		}
	}
}
