package changefeed

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lakron/internal/schedule/application/reconcile"
	"github.com/felixgeelhaar/lakron/internal/schedule/domain"
	"github.com/felixgeelhaar/lakron/internal/shared/infrastructure/eventbus"
)

// BusFeed subscribes to a profile's changes on an event bus.
type BusFeed struct {
	subscriber eventbus.Subscriber
	logger     *slog.Logger
}

// NewBusFeed creates a feed over subscriber.
func NewBusFeed(subscriber eventbus.Subscriber, logger *slog.Logger) *BusFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &BusFeed{subscriber: subscriber, logger: logger}
}

// Subscribe opens a stream of the profile's changes. Messages that fail to
// decode are logged and dropped.
func (f *BusFeed) Subscribe(ctx context.Context, profileID uuid.UUID) (reconcile.Stream, error) {
	sub, err := f.subscriber.Subscribe(ctx, domain.ProfileTopic(profileID.String()))
	if err != nil {
		return nil, err
	}

	s := &busStream{
		sub:    sub,
		events: make(chan domain.ChangeEvent),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.decode(f.logger.With("profile_id", profileID))
	return s, nil
}

type busStream struct {
	sub    eventbus.Subscription
	events chan domain.ChangeEvent
	stop   chan struct{}
	done   chan struct{}
}

func (s *busStream) Events() <-chan domain.ChangeEvent { return s.events }

func (s *busStream) Err() error { return s.sub.Err() }

func (s *busStream) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	err := s.sub.Close()
	<-s.done
	return err
}

func (s *busStream) decode(logger *slog.Logger) {
	defer close(s.done)
	defer close(s.events)

	for msg := range s.sub.Messages() {
		ev, err := Decode(msg.Body)
		if err != nil {
			logger.Warn("dropping undecodable change", "routing_key", msg.RoutingKey, "error", err)
			continue
		}
		select {
		case s.events <- ev:
		case <-s.stop:
			return
		}
	}
}
