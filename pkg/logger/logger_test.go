package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerCarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{
		ServiceName: "test",
		Level:       zerolog.InfoLevel,
		Output:      &buf,
	})

	ctx := logg.WithRequestID(context.Background(), "req-123")
	ctx = logg.WithUserID(ctx, "user-456")
	logg.Info(ctx, "hello")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-123"`) {
		t.Fatalf("expected request_id in output, got %s", out)
	}
	if !strings.Contains(out, `"user_id":"user-456"`) {
		t.Fatalf("expected user_id in output, got %s", out)
	}
	if !strings.Contains(out, `"service":"test"`) {
		t.Fatalf("expected service field in output, got %s", out)
	}
}

func TestErrorIncludesStack(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{
		ServiceName: "test",
		Level:       zerolog.InfoLevel,
		Output:      &buf,
	})

	logg.Error(context.Background(), "boom", errors.New("broken"))

	out := buf.String()
	if !strings.Contains(out, `"error":"broken"`) {
		t.Fatalf("expected error field, got %s", out)
	}
	if !strings.Contains(out, "stack") {
		t.Fatalf("expected stack field, got %s", out)
	}
}

func TestWithFieldsDoesNotMutateParentContext(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{
		ServiceName: "test",
		Level:       zerolog.InfoLevel,
		Output:      &buf,
	})

	parent := context.Background()
	_ = logg.WithFields(parent, map[string]any{"scope": "child"})
	logg.Info(parent, "parent log")

	if strings.Contains(buf.String(), "child") {
		t.Fatalf("parent context should not carry child fields: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		" warn ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
