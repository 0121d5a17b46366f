package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(level slog.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{Level: level, Component: ComponentHTTP, Output: &buf}), &buf
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range cases {
		got, err := ParseLevel(tc.in)
		if got != tc.want || (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestComponentField(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	l.WithComponent(ComponentStorage).InfoContext(context.Background(), "opened")
	if !strings.Contains(buf.String(), "component=storage") {
		t.Fatalf("missing component: %s", buf.String())
	}
}

func TestContextLogger(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelInfo)
	ctx := NewContext(context.Background(), l.With(FieldRequestID, "req_1"))
	FromContext(ctx).InfoContext(ctx, "inside")
	if !strings.Contains(buf.String(), "request_id=req_1") || !strings.Contains(buf.String(), "component=http") {
		t.Fatalf("context logger lost attributes: %s", buf.String())
	}
}

func TestLogFieldsSorted(t *testing.T) {
	got := LogFields{"b": 2, "a": 1}.args()
	if len(got) != 4 || got[0] != "a" || got[2] != "b" {
		t.Fatalf("args = %v", got)
	}
	if len(LogFields(nil).args()) != 0 {
		t.Fatal("nil fields should flatten to nothing")
	}
}

func TestFromContextDefault(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Fatalf("component = %q", got)
	}
}

func TestStructuredLogger(t *testing.T) {
	l, buf := newBufferLogger(slog.LevelDebug)
	sl := NewStructuredLogger(l)
	ctx := context.Background()
	r := httptest.NewRequest(http.MethodPost, "/spending?x=1", nil)

	sl.LogHTTPEnd(ctx, r, "req_2", http.StatusInternalServerError, 12, "10.0.0.1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=500") {
		t.Fatalf("unexpected end log: %s", buf.String())
	}

	buf.Reset()
	sl.LogSpendingSaved(ctx, "2025-03-01", 1, 2, 3, 4, 10)
	if !strings.Contains(buf.String(), "date=2025-03-01") || !strings.Contains(buf.String(), "total=10") {
		t.Fatalf("unexpected save log: %s", buf.String())
	}

	buf.Reset()
	sl.LogError(ctx, "boom", errors.New("disk full"), ComponentStorage, OpSave, nil)
	if !strings.Contains(buf.String(), `error="disk full"`) {
		t.Fatalf("unexpected error log: %s", buf.String())
	}
}
