package logging

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_WritesKeyValueFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core)).With("component", "stats")

	logger.Info("cycle finished", "fixtures", 3, "error", errors.New("boom"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "stats" {
		t.Fatalf("expected component field, got %v", fields["component"])
	}
	if fields["fixtures"] != int64(3) {
		t.Fatalf("expected fixtures=3, got %v", fields["fixtures"])
	}
	if fields["error"] != "boom" {
		t.Fatalf("expected error=boom, got %v", fields["error"])
	}
}

func TestLogger_MirrorReceivesContextRecords(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core))

	var got []string
	SetMirror(func(_ context.Context, level Level, msg string, _ ...any) {
		got = append(got, level.String()+":"+msg)
	})
	defer SetMirror(nil)

	logger.InfoContext(context.Background(), "mirrored")
	logger.DebugContext(context.Background(), "below level")
	logger.Info("not context aware")

	if len(got) != 1 || got[0] != "info:mirrored" {
		t.Fatalf("unexpected mirrored records: %v", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARNING": LevelWarn,
		" error ": LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) got=%s want=%s", raw, got, want)
		}
	}
}
