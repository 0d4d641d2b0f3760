package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magnet-design/magnet-core/internal/config"
)

func TestNew_JSONFormat_InfoLevel(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json"})
	assert.NotNil(t, logger)
}

func TestNew_AllLevelsAndFormats(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		for _, format := range []string{"json", "text"} {
			logger := New(config.LoggingConfig{Level: level, Format: format})
			assert.NotNil(t, logger)
		}
	}
}

func TestLogger_With_ChainedCallsProduceDistinctInstances(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json"})
	l1 := logger.With("key1", "value1")
	l2 := l1.With("key2", "value2")
	assert.NotEqual(t, logger, l1)
	assert.NotEqual(t, l1, l2)
}

func TestLogger_WithContext_ReturnsUsableLogger(t *testing.T) {
	logger := New(config.LoggingConfig{Level: "info", Format: "json"})
	ctx := context.Background()
	assert.NotNil(t, logger.WithContext(ctx))
}

func TestLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "debug", "json")
	logger.Debug("test debug message")
	output := buf.String()
	assert.Contains(t, output, "test debug message")
	assert.Contains(t, output, "DEBUG")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "warn", "json")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()
	assert.NotContains(t, output, "debug message")
	assert.NotContains(t, output, "info message")
	assert.Contains(t, output, "warn message")
	assert.Contains(t, output, "error message")
}

func TestLogger_ContextMethodsLogNormally(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "debug", "json")
	ctx := context.Background()

	logger.DebugContext(ctx, "debug with context")
	logger.InfoContext(ctx, "info with context")
	logger.WarnContext(ctx, "warn with context")
	logger.ErrorContext(ctx, "error with context")

	output := buf.String()
	assert.Contains(t, output, "debug with context")
	assert.Contains(t, output, "info with context")
	assert.Contains(t, output, "warn with context")
	assert.Contains(t, output, "error with context")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestDefault_ReturnsLogger(t *testing.T) {
	assert.NotNil(t, Default())
}

func TestSetDefault(t *testing.T) {
	original := Default()
	newLogger := New(config.LoggingConfig{Level: "debug", Format: "text"})
	SetDefault(newLogger)
	assert.Equal(t, newLogger, Default())
	SetDefault(original)
}

func TestGlobalLoggingFunctionsDoNotPanic(t *testing.T) {
	Debug("global debug test")
	Info("global info test")
	Warn("global warn test")
	Error("global error test")
}

func TestLogger_JSONFormat_ValidJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "info", "json")
	logger.Info("test message", "key", "value")

	var jsonData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &jsonData))
	assert.Equal(t, "INFO", jsonData["level"])
	assert.Equal(t, "test message", jsonData["msg"])
	assert.Equal(t, "value", jsonData["key"])
}

func TestLogger_Integration_CompleteFlow(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "debug", "json")

	logger.Debug("step 1", "action", "start")
	logger.Info("step 2", "action", "processing")
	logger.Warn("step 3", "action", "warning")
	logger.Error("step 4", "action", "error")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
}

func TestLogger_Integration_WithChaining(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, "info", "json")

	requestLogger := base.With("user_id", "123").With("request_id", "abc")
	requestLogger.Info("request completed", "status", 200)

	var jsonData map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &jsonData))
	assert.Equal(t, "123", jsonData["user_id"])
	assert.Equal(t, "abc", jsonData["request_id"])
	assert.Equal(t, float64(200), jsonData["status"])
}

func newTestLogger(buf *bytes.Buffer, level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level), AddSource: level == "debug"}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(buf, opts)
	} else {
		handler = slog.NewTextHandler(buf, opts)
	}

	return &Logger{logger: slog.New(handler)}
}
