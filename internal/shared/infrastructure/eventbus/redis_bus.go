package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBus carries messages over Redis pub/sub. Routing keys are channel
// names and patterns become PSUBSCRIBE globs.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisBus connects to the Redis server at url (redis://host:port/db).
func NewRedisBus(ctx context.Context, url string, logger *slog.Logger) (*RedisBus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info("redis event bus connected", "addr", opts.Addr)
	return &RedisBus{client: client, logger: logger}, nil
}

// NewRedisBusFromClient wraps an existing client.
func NewRedisBusFromClient(client *redis.Client, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{client: client, logger: logger}
}

// Publish sends payload on the routingKey channel.
func (b *RedisBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	receivers, err := b.client.Publish(ctx, routingKey, payload).Result()
	if err != nil {
		b.logger.Error("failed to publish message", "routing_key", routingKey, "error", err)
		return err
	}
	b.logger.Debug("message published", "routing_key", routingKey, "receivers", receivers)
	return nil
}

// Subscribe opens a pattern subscription and waits for the server to
// confirm it.
func (b *RedisBus) Subscribe(ctx context.Context, pattern string) (Subscription, error) {
	ps := b.client.PSubscribe(ctx, RedisPattern(pattern))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", pattern, err)
	}

	sub := &redisSubscription{queue: newQueue(), ps: ps}
	go sub.forward(ctx)
	return sub, nil
}

// Ping checks the server.
func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close closes the client and every subscription on it.
func (b *RedisBus) Close() error {
	return b.client.Close()
}

// RedisPattern converts an AMQP-style topic pattern into a Redis glob.
func RedisPattern(pattern string) string {
	return strings.ReplaceAll(pattern, "#", "*")
}

type redisSubscription struct {
	*queue
	ps *redis.PubSub
}

func (s *redisSubscription) Messages() <-chan Message { return s.out }

func (s *redisSubscription) forward(ctx context.Context) {
	ch := s.ps.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.ps.Close()
			s.finish(ctx.Err())
			return
		case msg, ok := <-ch:
			if !ok {
				s.finish(ErrClosed)
				return
			}
			s.push(Message{RoutingKey: msg.Channel, Body: []byte(msg.Payload)})
		}
	}
}

func (s *redisSubscription) Close() error {
	s.finish(nil)
	return s.ps.Close()
}
