package log

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return New(Config{Level: level, Component: ComponentHTTP, Output: buf})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)

	logger.Info("hello", FieldUserID, 7)
	logger.WithComponent(ComponentWorker).Warn("careful")
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=http") || !strings.Contains(out, "user_id=7") {
		t.Errorf("first record missing attributes: %s", out)
	}
	if !strings.Contains(out, "component=worker") {
		t.Errorf("WithComponent not applied: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record logged at info level: %s", out)
	}
}

func TestNewDefaultsComponent(t *testing.T) {
	logger := New(Config{Output: &bytes.Buffer{}})
	if logger.Component() != ComponentApp {
		t.Errorf("Component() = %q, want %q", logger.Component(), ComponentApp)
	}
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithOperation(OpCreate).
		WithEntity("budget", 3).
		WithError(nil)
	if _, ok := fields[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
	fields.WithError(errors.New("boom"))
	if fields[FieldError] != "boom" || fields[FieldEntityID] != int64(3) {
		t.Errorf("unexpected fields: %v", fields)
	}
	if got := len(fields.ToSlice()); got != 8 {
		t.Errorf("ToSlice() length = %d, want 8", got)
	}
}

func TestFromContextFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := FromContext(req.Context()).Component(); got != "unknown" {
		t.Errorf("fallback component = %q", got)
	}
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf, slog.LevelInfo)

	var seen *Logger
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	})
	handler := Middleware(logger)(
		RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
			AccessMiddleware(func(*http.Request) string { return "203.0.113.9" })(final),
		),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets?page=2", nil))

	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("handler did not receive the request logger")
	}
	out := buf.String()
	for _, want := range []string{
		"HTTP request completed",
		"level=WARN",
		"request_id=req-42",
		"status_code=404",
		"client_ip=203.0.113.9",
		"path=/api/budgets",
		"success=false",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("access log missing %q: %s", want, out)
		}
	}
}
