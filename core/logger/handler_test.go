package logger

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// render logs one event through a fresh handler and returns the written line.
func render(t *testing.T, format logFormat, ctx context.Context, level slog.Level, event string, attrs ...slog.Attr) string {
	t.Helper()
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	h := newStructuredHandler(handlerConfig{
		level:  slog.LevelDebug,
		writer: aw,
		format: format,
	})
	prev := L
	L = slog.New(h)
	t.Cleanup(func() { L = prev })

	Event(ctx, "app", level, event, attrs...)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	return line
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-123")
	ctx = WithRequestMeta(ctx, "tg:7", "telegram")

	line := render(t, formatKV, ctx, slog.LevelInfo, "test.event",
		slog.String("status", "ok"),
		slog.String("cause", "unit"),
	)
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=app", "event=test.event", "status=ok", "rid=rid-123", "channel=telegram", "user_id=tg:7"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	ctx := WithRID(context.Background(), "rid-json")
	ctx = WithRequestMeta(ctx, "ana", "http")

	line := render(t, formatJSON, ctx, slog.LevelError, "chat.failed",
		slog.String("status", "FAIL"),
		slog.Any("err", errors.New("boom")),
	)
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"app"`, `"event":"chat.failed"`, `"status":"fail"`, `"rid":"rid-json"`, `"channel":"http"`, `"user_id":"ana"`, `"err":"boom"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	rawRID := BuildRID(123, 456, 789)
	line := render(t, formatKV, WithRID(context.Background(), rawRID), slog.LevelInfo, "rid.test")
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerCompactRIDJSON(t *testing.T) {
	rawRID := "12:34:56"
	line := render(t, formatJSON, WithRID(context.Background(), rawRID), slog.LevelInfo, "rid.test")
	if !strings.Contains(line, `"rid":"`+CompactRID(rawRID)+`"`) {
		t.Fatalf("expected compact rid in JSON, got %s", line)
	}
	if !strings.Contains(line, `"rid_full":"`+rawRID+`"`) {
		t.Fatalf("expected rid_full in JSON output, got %s", line)
	}
	if !strings.Contains(line, `"ts_unix_nano"`) {
		t.Fatalf("expected ts_unix_nano to be present in JSON output, got %s", line)
	}
}

func TestStructuredHandlerEnumerations(t *testing.T) {
	line := render(t, formatKV, context.Background(), slog.LevelDebug, "dialogue.turn",
		slog.String("outcome", "Suggestion"),
		slog.String("cache", "bogus"),
		slog.Duration("duration", 1500*time.Microsecond),
		slog.String("keyword", "aux enf"),
	)
	if !strings.Contains(line, "outcome=suggestion") {
		t.Fatalf("expected normalized outcome, got %s", line)
	}
	if strings.Contains(line, "cache=") {
		t.Fatalf("unknown cache value should be dropped, got %s", line)
	}
	if !strings.Contains(line, "duration_ms=2") {
		t.Fatalf("expected duration in ms, got %s", line)
	}
	if !strings.Contains(line, `keyword="aux enf"`) {
		t.Fatalf("expected quoted value, got %s", line)
	}
}

func TestCompactRIDLeavesUUIDs(t *testing.T) {
	id := "3f0c2a4e-9b1d-4c55-8f62-0d7f1e2a9b10"
	if got := CompactRID(id); got != id {
		t.Fatalf("CompactRID(%q) = %q", id, got)
	}
	if got := CompactRID("35:36:37"); got != "z.10.11" {
		t.Fatalf("CompactRID = %q", got)
	}
}

func TestSanitizeLimit(t *testing.T) {
	if got := SanitizeLimit("ho\x00la\u200b mundo", 4); got != "hola" {
		t.Fatalf("SanitizeLimit = %q", got)
	}
	if got := SanitizeLimit("x", 0); got != "" {
		t.Fatalf("SanitizeLimit with zero limit = %q", got)
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(2, 5)
	allowed := 0
	for i := 0; i < 10; i++ {
		if s.Allow() {
			allowed++
		}
	}
	if allowed != 4 {
		t.Fatalf("allowed %d of 10, want 4", allowed)
	}
	s.Set(0, 0)
	if !s.Allow() {
		t.Fatal("disabled sampler must allow everything")
	}
	if n, d := parseRatioSpec("20"); n != 1 || d != 20 {
		t.Fatalf("parseRatioSpec(20) = %d/%d", n, d)
	}
	if n, d := parseRatioSpec("a/b"); n != 0 || d != 0 {
		t.Fatalf("parseRatioSpec(a/b) = %d/%d", n, d)
	}
}
