// Package resilience guards calls to remote dependencies with circuit
// breakers.
package resilience

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/felixgeelhaar/lakron/pkg/observability"
)

// ErrCircuitOpen is returned without calling the dependency while the
// breaker is open.
var ErrCircuitOpen = errors.New("store unavailable: circuit open")

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	Name string
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MaxRequests is the number of probes allowed while half-open.
	MaxRequests uint32
	// Expected errors are answers, not outages, and never trip the breaker.
	Expected []error
}

// DefaultBreakerConfig opens after 5 consecutive failures for 30s.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

// Breaker wraps a gobreaker circuit breaker with logging and metrics.
type Breaker struct {
	cb      *gobreaker.CircuitBreaker[any]
	name    string
	metrics observability.Metrics
}

// NewBreaker creates a breaker.
func NewBreaker(cfg BreakerConfig, logger *slog.Logger, metrics observability.Metrics) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	expected := cfg.Expected
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			for _, e := range expected {
				if errors.Is(err, e) {
					return true
				}
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Breaker{
		cb:      gobreaker.NewCircuitBreaker[any](settings),
		name:    cfg.Name,
		metrics: metrics,
	}
}

// State returns closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

func (b *Breaker) execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.metrics.Counter(observability.MetricStoreBreakerOpen, 1, observability.T("breaker", b.name))
		return nil, ErrCircuitOpen
	}
	return result, err
}

// Do runs fn through the breaker.
func Do[T any](b *Breaker, fn func() (T, error)) (T, error) {
	result, err := b.execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}

// Run runs fn through the breaker.
func Run(b *Breaker, fn func() error) error {
	_, err := b.execute(func() (any, error) {
		return nil, fn()
	})
	return err
}
