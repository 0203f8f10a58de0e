package observability

import (
	"log/slog"
	"time"
)

// Timer measures one operation and reports it on Stop.
type Timer struct {
	operation string
	start     time.Time
	logger    *slog.Logger
	metrics   Metrics
}

// StartTimer starts timing operation.
func StartTimer(operation string) *Timer {
	return &Timer{operation: operation, start: time.Now()}
}

// WithLogger makes Stop log the outcome at debug level.
func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

// WithMetrics makes Stop record duration and counters.
func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

// Stop records the outcome of the operation. err may be nil.
func (t *Timer) Stop(err error) time.Duration {
	d := time.Since(t.start)

	if t.logger != nil {
		if err != nil {
			t.logger.Warn("operation failed",
				"operation", t.operation,
				"duration_ms", d.Milliseconds(),
				"error", err,
			)
		} else {
			t.logger.Debug("operation completed",
				"operation", t.operation,
				"duration_ms", d.Milliseconds(),
			)
		}
	}

	if t.metrics != nil {
		tag := T("operation", t.operation)
		t.metrics.Timing(MetricOperationDuration, d, tag)
		t.metrics.Counter(MetricOperationTotal, 1, tag)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, tag)
		}
	}
	return d
}

// TimeOperationResult times fn and records it under operation.
func TimeOperationResult[T any](logger *slog.Logger, metrics Metrics, operation string, fn func() (T, error)) (T, error) {
	timer := StartTimer(operation).WithLogger(logger).WithMetrics(metrics)
	result, err := fn()
	timer.Stop(err)
	return result, err
}
