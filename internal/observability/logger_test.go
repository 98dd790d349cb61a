package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerLevelMapping(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		level        string
		debugEnabled bool
	}{
		{name: "debug level", level: "debug", debugEnabled: true},
		{name: "info level", level: "info", debugEnabled: false},
		{name: "mixed case", level: "Warn", debugEnabled: false},
		{name: "empty level defaults to info", level: "", debugEnabled: false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if err != nil {
				t.Fatalf("NewLogger(%q) error = %v", tc.level, err)
			}
			if got := logger.Core().Enabled(zapcore.DebugLevel); got != tc.debugEnabled {
				t.Fatalf("debug enabled = %v, want %v", got, tc.debugEnabled)
			}
		})
	}
}

func TestNewLoggerInvalidLevel(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger("loud")
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
	if logger != nil {
		t.Fatal("expected nil logger for invalid level")
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithCorrelationID(context.Background(), "order_1")
	correlationID, ok := CorrelationIDFromContext(ctx)
	if !ok {
		t.Fatal("expected correlation id to exist")
	}
	if correlationID != "order_1" {
		t.Fatalf("correlation id = %q, want %q", correlationID, "order_1")
	}

	if _, ok := CorrelationIDFromContext(context.Background()); ok {
		t.Fatal("expected correlation id to be missing from a fresh context")
	}
}

func TestWithContextLoggerAnnotates(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	ctx := WithCorrelationID(context.Background(), "return_9")
	WithContextLogger(baseLogger, ctx).Info("delivery recorded")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if got := entries[0].ContextMap()["correlationId"]; got != "return_9" {
		t.Fatalf("correlationId = %v, want %q", got, "return_9")
	}
}

func TestWithContextLoggerWithoutCorrelationID(t *testing.T) {
	t.Parallel()

	core, recorded := observer.New(zapcore.InfoLevel)
	baseLogger := zap.New(core)

	WithContextLogger(baseLogger, context.Background()).Info("plain entry")

	entries := recorded.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if _, ok := entries[0].ContextMap()["correlationId"]; ok {
		t.Fatal("expected no correlationId field")
	}

	if got := WithContextLogger(nil, context.Background()); got != nil {
		t.Fatal("expected nil logger to stay nil")
	}
}
