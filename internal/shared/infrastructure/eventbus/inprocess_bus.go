package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// InProcessBus delivers messages between components of one process. It is
// the change feed for local SQLite mode.
type InProcessBus struct {
	logger *slog.Logger

	mu     sync.RWMutex
	subs   map[*inProcessSubscription]struct{}
	closed bool
}

// NewInProcessBus creates an empty bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{
		logger: logger,
		subs:   make(map[*inProcessSubscription]struct{}),
	}
}

// Publish queues the payload on every matching subscription. It never blocks
// on subscribers.
func (b *InProcessBus) Publish(_ context.Context, routingKey string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	delivered := 0
	for sub := range b.subs {
		if MatchTopic(sub.pattern, routingKey) {
			sub.push(Message{RoutingKey: routingKey, Body: append([]byte(nil), payload...)})
			delivered++
		}
	}
	b.logger.Debug("message published",
		"routing_key", routingKey,
		"subscribers", delivered,
	)
	return nil
}

// Subscribe registers pattern. The subscription ends when ctx is done, when
// it is closed, or when the bus is closed.
func (b *InProcessBus) Subscribe(ctx context.Context, pattern string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	sub := &inProcessSubscription{queue: newQueue(), pattern: pattern, bus: b}
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			sub.end(ctx.Err())
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Close ends every subscription with ErrClosed.
func (b *InProcessBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*inProcessSubscription]struct{})
	b.mu.Unlock()

	for sub := range subs {
		sub.finish(ErrClosed)
	}
	return nil
}

func (b *InProcessBus) remove(sub *inProcessSubscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

type inProcessSubscription struct {
	*queue
	pattern string
	bus     *InProcessBus
}

func (s *inProcessSubscription) Messages() <-chan Message { return s.out }

func (s *inProcessSubscription) end(err error) {
	s.bus.remove(s)
	s.finish(err)
}

func (s *inProcessSubscription) Close() error {
	s.end(nil)
	return nil
}
