package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "not JSON: %s", buf.String())
	return entry
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Service: "sessionkit", Version: "1.2.3"}, &buf)

	logger.Info("signed in", "account_id", "acc-1")

	entry := decode(t, &buf)
	assert.Equal(t, "signed in", entry["msg"])
	assert.Equal(t, "sessionkit", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "acc-1", entry["account_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestSetupTextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Service: "sessionkit", Format: "text", Level: "warn"}, &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "service=sessionkit")
}

func TestTraceContextIsAttached(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(Options{Service: "sessionkit"}, &buf)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.With("component", "engine").InfoContext(ctx, "traced")

	entry := decode(t, &buf)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
	assert.Equal(t, "engine", entry["component"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestLogErrorExpandsOops(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	err := oops.Code("SESSION_BACKEND_FAILURE").With("operation", "signout").Wrap(errors.New("dial tcp: refused"))
	LogError(context.Background(), logger, "signout failed", err)

	entry := decode(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "SESSION_BACKEND_FAILURE", entry["code"])
	require.IsType(t, map[string]any{}, entry["context"])
	assert.Equal(t, "signout", entry["context"].(map[string]any)["operation"])
}

func TestLogWarnPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	LogWarn(context.Background(), logger, "mail not sent", errors.New("smtp 421"))

	entry := decode(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Contains(t, entry["error"], "smtp 421")
}

func TestDiscard(t *testing.T) {
	assert.False(t, Discard().Enabled(context.Background(), slog.LevelError))
}
