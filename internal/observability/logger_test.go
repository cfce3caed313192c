package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.in))
		})
	}
}

func TestLogger_JSONWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, Config{
		ServiceName:    "depic",
		ServiceVersion: "test",
		Environment:    "test",
		LogLevel:       "debug",
		LogFormat:      "json",
	})

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.Info(ctx).Str("path", "a.jpg").Msg("stripped")
	span.End()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stripped", entry["message"])
	assert.Equal(t, "a.jpg", entry["path"])
	assert.Equal(t, "depic", entry["service"])
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, Config{LogLevel: "warn", LogFormat: "json"})

	logger.Debug(context.Background()).Msg("hidden")
	logger.Info(context.Background()).Msg("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn(context.Background()).Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, Config{LogFormat: "json"}).WithFields(map[string]interface{}{"component": "metadata"})

	logger.Info(context.Background()).Msg("hello")
	assert.Contains(t, buf.String(), `"component":"metadata"`)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().Error(context.Background()).Msg("dropped")
	})
}
