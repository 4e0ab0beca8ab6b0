package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"montra/internal/core"
	"montra/internal/ledger"
	applog "montra/internal/log"
	"montra/internal/middleware/identity"
	"montra/internal/sheets"
)

func TestResponseBuilderJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().
		Status(http.StatusCreated).
		Header("X-Custom", "yes").
		JSON(map[string]int{"id": 4}).
		Write(rec)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != jsonContentType {
		t.Errorf("content type = %q", got)
	}
	if rec.Header().Get("X-Custom") != "yes" {
		t.Error("custom header missing")
	}
	if got := rec.Body.String(); got != "{\"id\":4}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestResponseBuilderUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().JSON(map[string]any{"bad": make(chan int)}).Write(rec)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestResponseBuilderAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	NewResponse().Attachment("text/csv", "montra_transactions.csv", []byte("a,b\n")).Write(rec)
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="montra_transactions.csv"` {
		t.Errorf("disposition = %q", got)
	}
	if rec.Body.String() != "a,b\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", core.FieldError("amount", core.ErrInvalidAmount, "bad"), http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("create: %w", core.FieldError("name", core.ErrEmptyName, "required")), http.StatusUnprocessableEntity},
		{"malformed body", fmt.Errorf("%w: eof", errMalformedBody), http.StatusBadRequest},
		{"not found", fmt.Errorf("get transaction 3: %w", ledger.ErrNotFound), http.StatusNotFound},
		{"forbidden", ledger.ErrForbidden, http.StatusForbidden},
		{"conflict", ledger.ErrConflict, http.StatusConflict},
		{"sheets", sheets.ErrNotConfigured, http.StatusServiceUnavailable},
		{"identity", identity.ErrInvalidToken, http.StatusUnauthorized},
		{"timeout", fmt.Errorf("dashboard: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, httptest.NewRequest(http.MethodGet, "/api/x", nil), tt.err)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == "" {
				t.Error("empty error message")
			}
			if tt.status == http.StatusInternalServerError && body.Error != "internal server error" {
				t.Errorf("internal details leaked: %q", body.Error)
			}
		})
	}
}

func TestWriteErrorLogsErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.FieldError("amount", core.ErrInvalidAmount, "bad"), "error_type=validation_error"},
		{ledger.ErrNotFound, "error_type=not_found_error"},
		{ledger.ErrConflict, "error_type=conflict_error"},
		{context.DeadlineExceeded, "error_type=timeout_error"},
		{errors.New("disk on fire"), "error_type=internal_error"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &buf})
		req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
		req = req.WithContext(applog.NewContext(req.Context(), logger))

		WriteError(httptest.NewRecorder(), req, tt.err)
		if !strings.Contains(buf.String(), tt.want) {
			t.Errorf("WriteError(%v) log = %q, want %q", tt.err, buf.String(), tt.want)
		}
	}
}
