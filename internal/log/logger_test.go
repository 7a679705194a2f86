package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{
		Component: component,
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "ParseLevel(%q)", in)
	}
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentApp)

	logger.Info("one")
	logger.WithComponent(ComponentWorker).Warn("two", "k", "v")
	logger.With(FieldRequestID, "req_1").Error("three")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, ComponentApp, lines[0][FieldComponent])
	assert.Equal(t, ComponentWorker, lines[1][FieldComponent])
	assert.Equal(t, "v", lines[1]["k"])
	assert.Equal(t, "req_1", lines[2][FieldRequestID])
	assert.Equal(t, ComponentApp, lines[2][FieldComponent])
}

func TestFromContext(t *testing.T) {
	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.Equal(t, ComponentApp, fallback.Component())

	var buf bytes.Buffer
	logger := newJSONLogger(&buf, ComponentHTTP)
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))
}

func TestStructuredLogger_HTTPEndLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{503, "ERROR"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		sl := NewStructuredLogger(newJSONLogger(&buf, ComponentHTTP))
		r := httptest.NewRequest("GET", "/api/dashboard?year=2023", nil)

		sl.LogHTTPEnd(context.Background(), r, tt.status, 12, "10.0.0.1")

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, tt.level, lines[0]["level"], "status %d", tt.status)
		assert.Equal(t, float64(tt.status), lines[0][FieldStatusCode])
		assert.Equal(t, "year=2023", lines[0][FieldQuery])
		assert.Equal(t, tt.status < 400, lines[0][FieldSuccess])
	}
}

func TestStructuredLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newJSONLogger(&buf, ComponentApp))

	sl.LogError(context.Background(), "reload failed", errors.New("boom"), ComponentDataset, OpReload, nil)
	sl.LogDatasetLoaded(context.Background(), "csv:trade.csv", 11, []int{2023, 2022})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "boom", lines[0][FieldError])
	assert.Equal(t, OpReload, lines[0][FieldOperation])
	assert.Equal(t, ComponentDataset, lines[0][FieldComponent])

	assert.Equal(t, "csv:trade.csv", lines[1][FieldSource])
	assert.Equal(t, float64(11), lines[1][FieldRows])
	assert.Equal(t, OpLoad, lines[1][FieldOperation])
}
