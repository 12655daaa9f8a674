package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func captureJSON(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := defaultLogger
	defaultLogger = New(&buf, "debug", "json")
	t.Cleanup(func() { defaultLogger = prev })
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestFromContextAddsKnownFields(t *testing.T) {
	buf := captureJSON(t)

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithContext(ctx, AnalysisIDKey, "an-9")
	Info(ctx, "analysis started", "types", 2)

	line := decodeLine(t, buf)
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "an-9", line["analysis_id"])
	assert.Equal(t, "analysis started", line["msg"])
	assert.NotContains(t, line, "suggestion_id")
	assert.NotContains(t, line, "trace_id")
}

func TestFromContextUsesActiveSpan(t *testing.T) {
	buf := captureJSON(t)

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Warn(ctx, "cache lookup failed")

	line := decodeLine(t, buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestErrorAppendsErrorField(t *testing.T) {
	buf := captureJSON(t)
	Error(context.Background(), "materialize failed", assert.AnError, "type", "lore")

	line := decodeLine(t, buf)
	assert.Equal(t, assert.AnError.Error(), line["error"])
	assert.Equal(t, "lore", line["type"])
	assert.Equal(t, "ERROR", line["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
