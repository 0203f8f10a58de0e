package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("text output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatText, Output: &buf, ServiceName: "lakron"})

		logger.Info("task loaded", "count", 3)

		out := buf.String()
		assert.Contains(t, out, "task loaded")
		assert.Contains(t, out, "count=3")
		assert.Contains(t, out, "service=lakron")
	})

	t.Run("json output", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})

		logger.Info("task loaded", "count", 3)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "task loaded", entry["msg"])
		assert.EqualValues(t, 3, entry["count"])
	})

	t.Run("level filters records", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelWarn, Output: &buf})

		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("context ids are attached", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LogConfig{Level: LogLevelInfo, Format: LogFormatJSON, Output: &buf})

		ctx := WithCorrelationID(context.Background(), "corr-1")
		ctx = WithRequestID(ctx, "req-1")
		logger.With("component", "engine").InfoContext(ctx, "hello")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "corr-1", entry[CorrelationIDKey])
		assert.Equal(t, "req-1", entry[RequestIDKey])
		assert.Equal(t, "engine", entry["component"])
	})
}

func TestLoggerFromEnv(t *testing.T) {
	t.Setenv("LAKRON_ENV", "")
	t.Setenv("LAKRON_LOG_LEVEL", "debug")
	t.Setenv("LAKRON_LOG_FORMAT", "json")

	logger := LoggerFromEnv("error")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestContextIDs(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "")
	assert.NotEmpty(t, CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(ctx))
}

func TestTimer_Stop(t *testing.T) {
	metrics := NewInMemoryMetrics()
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: LogLevelDebug, Output: &buf})

	_, err := TimeOperationResult(logger, metrics, "toggle", func() (int, error) {
		return 0, errors.New("boom")
	})
	require.Error(t, err)

	tag := T("operation", "toggle")
	assert.Equal(t, int64(1), metrics.GetCounter(MetricOperationTotal, tag))
	assert.Equal(t, int64(1), metrics.GetCounter(MetricOperationErrors, tag))
	assert.Len(t, metrics.GetTimings(MetricOperationDuration, tag), 1)
	assert.Contains(t, buf.String(), "operation failed")
}
