package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange carrying task changes.
const ExchangeName = "lakron.task.changes"

// RabbitMQBus publishes to a durable topic exchange. Each subscription gets
// its own exclusive, auto-deleted queue bound with the pattern.
type RabbitMQBus struct {
	conn     *amqp.Connection
	exchange string
	logger   *slog.Logger

	mu      sync.Mutex
	channel *amqp.Channel
}

// NewRabbitMQBus dials url and declares the exchange.
func NewRabbitMQBus(url string, logger *slog.Logger) (*RabbitMQBus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareExchange(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	logger.Info("RabbitMQ event bus connected", "exchange", ExchangeName)
	return &RabbitMQBus{
		conn:     conn,
		channel:  ch,
		exchange: ExchangeName,
		logger:   logger,
	}, nil
}

func declareExchange(ch *amqp.Channel) error {
	err := ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	return nil
}

// Publish sends payload to the exchange under routingKey.
func (b *RabbitMQBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.channel.PublishWithContext(ctx,
		b.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Timestamp:    time.Now(),
			Body:         payload,
		},
	)
	if err != nil {
		b.logger.Error("failed to publish message", "routing_key", routingKey, "error", err)
		return err
	}

	b.logger.Debug("message published", "routing_key", routingKey, "size", len(payload))
	return nil
}

// Subscribe declares a private queue bound to pattern and starts consuming.
func (b *RabbitMQBus) Subscribe(ctx context.Context, pattern string) (Subscription, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, pattern, b.exchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	// One unacknowledged delivery at a time keeps publication order.
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	b.logger.Debug("bound queue to routing pattern", "queue", q.Name, "pattern", pattern)

	sub := &rabbitSubscription{
		queue:   newQueue(),
		channel: ch,
		closed:  ch.NotifyClose(make(chan *amqp.Error, 1)),
		logger:  b.logger,
	}
	go sub.forward(ctx, deliveries)
	return sub, nil
}

// Ping reports whether the connection is still open.
func (b *RabbitMQBus) Ping(context.Context) error {
	if b.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

// Close closes the publishing channel and the connection.
func (b *RabbitMQBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			b.logger.Warn("error closing channel", "error", err)
		}
	}
	if err := b.conn.Close(); err != nil {
		return err
	}
	b.logger.Info("RabbitMQ event bus closed")
	return nil
}

type rabbitSubscription struct {
	*queue
	channel *amqp.Channel
	closed  chan *amqp.Error
	logger  *slog.Logger
}

func (s *rabbitSubscription) Messages() <-chan Message { return s.out }

func (s *rabbitSubscription) forward(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			_ = s.channel.Close()
			s.finish(ctx.Err())
			return
		case amqpErr, ok := <-s.closed:
			if ok && amqpErr != nil {
				s.finish(amqpErr)
			} else {
				s.finish(ErrClosed)
			}
			return
		case d, ok := <-deliveries:
			if !ok {
				s.finish(ErrClosed)
				return
			}
			s.push(Message{RoutingKey: d.RoutingKey, Body: d.Body})
			if err := d.Ack(false); err != nil {
				s.logger.Error("failed to ack message", "error", err)
			}
		}
	}
}

func (s *rabbitSubscription) Close() error {
	s.finish(nil)
	err := s.channel.Close()
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}
