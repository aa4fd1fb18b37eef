package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_CustomWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Writer: &buf})

	logger.Info("category created", "slug", "phones")

	assert.Contains(t, buf.String(), "category created")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"slug":"phones"`)
}

func TestNew_FormatAutoDetection(t *testing.T) {
	tests := []struct {
		environment string
		wantJSON    bool
	}{
		{"production", true},
		{"development", false},
		{"staging", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.environment, func(t *testing.T) {
			var buf bytes.Buffer
			New(Config{Environment: tt.environment, Writer: &buf}).Info("hello")

			assert.Equal(t, tt.wantJSON, strings.HasPrefix(buf.String(), "{"), buf.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestPrettyHandler_Enabled(t *testing.T) {
	h := NewPrettyHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrettyHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewPrettyHandler(&buf, nil)
	r := slog.NewRecord(time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), slog.LevelWarn, "slug collision", 0)
	r.AddAttrs(slog.String("slug", "phones"), slog.String("reason", "already used"))

	require.NoError(t, h.Handle(context.Background(), r))

	out := buf.String()
	assert.Contains(t, out, "15:04:05")
	assert.Contains(t, out, "WRN")
	assert.Contains(t, out, "slug collision")
	assert.Contains(t, out, "slug=phones")
	assert.Contains(t, out, `reason="already used"`)
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyHandler(&buf, nil))

	logger.With("component", "store").WithGroup("category").Info("saved", "id", "cat-1")

	assert.Contains(t, buf.String(), "component=store")
	assert.Contains(t, buf.String(), "category.id=cat-1")
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Writer: &buf})

	logger.WithError(errors.New("boom")).Error("failed")

	assert.Contains(t, buf.String(), `"error":"boom"`)
}

func TestLogger_WithFieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "json", Writer: &buf})

	logger.WithFields(map[string]any{"a": 1}).WithField("b", "two").Component("search").Info("x")

	out := buf.String()
	assert.Contains(t, out, `"a":1`)
	assert.Contains(t, out, `"b":"two"`)
	assert.Contains(t, out, `"component":"search"`)
}

func TestContextLogger(t *testing.T) {
	fallback := slog.New(slog.DiscardHandler)
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	scoped := slog.New(slog.DiscardHandler).With("request_id", "r1")
	ctx := WithContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))
}

func TestDiscard(t *testing.T) {
	assert.NotPanics(t, func() { Discard().Info("ignored") })
}
