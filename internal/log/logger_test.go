package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Writer: &buf}).WithComponent(ComponentSession)

	logger.Info("restored", FieldUserID, 42)

	out := buf.String()
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "user_id=42") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLogErrorFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Writer: &buf})

	logger.LogError(context.Background(), "restore failed", errors.New("disk gone"), ErrorTypeStorage, OpRestore)

	out := buf.String()
	for _, want := range []string{"level=ERROR", `error="disk gone"`, "error_type=storage_error", "operation=restore"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("%s: got %v err=%v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestFromContext(t *testing.T) {
	logger := Discard().WithComponent(ComponentAPI)
	ctx := NewContext(context.Background(), logger)
	if got := FromContext(ctx); got.Component() != ComponentAPI {
		t.Fatalf("got component %q", got.Component())
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %q", got.Component())
	}
}
