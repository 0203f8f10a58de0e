// Package eventbus moves change notifications between processes over a
// topic bus. Routing keys are dot separated words; patterns use the AMQP
// wildcards "*" (one word) and "#" (zero or more words).
package eventbus

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrClosed is returned when publishing to or subscribing on a closed bus.
var ErrClosed = errors.New("event bus closed")

// Message is one delivered payload.
type Message struct {
	RoutingKey string
	Body       []byte
}

// Publisher sends payloads under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// Subscription delivers messages matching one pattern.
type Subscription interface {
	// Messages is closed when the subscription ends.
	Messages() <-chan Message
	// Err reports why Messages was closed. It is nil after Close.
	Err() error
	Close() error
}

// Subscriber opens subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string) (Subscription, error)
}

// Bus publishes and subscribes.
type Bus interface {
	Publisher
	Subscriber
}

// MatchTopic reports whether routingKey matches pattern.
func MatchTopic(pattern, routingKey string) bool {
	return matchWords(strings.Split(pattern, "."), strings.Split(routingKey, "."))
}

func matchWords(pattern, key []string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case "#":
			for i := 0; i <= len(key); i++ {
				if matchWords(pattern[1:], key[i:]) {
					return true
				}
			}
			return false
		case "*":
			if len(key) == 0 {
				return false
			}
		default:
			if len(key) == 0 || key[0] != pattern[0] {
				return false
			}
		}
		pattern, key = pattern[1:], key[1:]
	}
	return len(key) == 0
}

// queue is an unbounded FIFO drained into a channel by one goroutine, so a
// slow reader never blocks the publisher.
type queue struct {
	out    chan Message
	signal chan struct{}
	stop   chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	pending []Message
	err     error
	closed  bool
}

func newQueue() *queue {
	q := &queue{
		out:    make(chan Message),
		signal: make(chan struct{}, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go q.pump()
	return q
}

func (q *queue) push(msg Message) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, msg)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// finish stops delivery. err is reported by Err unless the reader closed
// the subscription first.
func (q *queue) finish(err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.err = err
	q.mu.Unlock()

	close(q.stop)
	<-q.done
}

func (q *queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *queue) pump() {
	defer close(q.done)
	defer close(q.out)

	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.mu.Unlock()
			select {
			case <-q.signal:
				continue
			case <-q.stop:
				return
			}
		}
		msg := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		select {
		case q.out <- msg:
		case <-q.stop:
			return
		}
	}
}
