// Package http provides the Montra JSON API server and its handlers.
//
// This file implements the builder used by every handler to write JSON and
// file responses, plus the mapping from domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"montra/internal/core"
	"montra/internal/ledger"
	applog "montra/internal/log"
	"montra/internal/middleware/identity"
	"montra/internal/sheets"
)

const jsonContentType = "application/json; charset=utf-8"

// ResponseBuilder provides a fluent API for building API responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the response body. Encoding failures turn the response
// into a 500.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"failed to encode response"}`)
	}
	b.headers["Content-Type"] = jsonContentType
	b.body = append(data, '\n')
	return b
}

// Attachment sets body as a downloadable file.
func (b *ResponseBuilder) Attachment(contentType, filename string, body []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", filename)
	b.body = body
	return b
}

// Body sets raw bytes with the given content type.
func (b *ResponseBuilder) Body(contentType string, body []byte) *ResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.body = body
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates a standard JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(ErrorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// ValidationResponse reports per-field messages with 422.
func ValidationResponse(fields map[string]string) *ResponseBuilder {
	return NewResponse().
		Status(http.StatusUnprocessableEntity).
		JSON(ErrorBody{Error: "validation failed", Fields: fields})
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// errorStatus maps a domain error onto an HTTP status and a client message.
func errorStatus(err error) (int, string, map[string]string) {
	var ve *core.ValidationError
	switch {
	case errors.Is(err, errMalformedBody):
		return http.StatusBadRequest, "malformed request body", nil
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "validation failed", ve.Fields
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not found", nil
	case errors.Is(err, ledger.ErrForbidden):
		return http.StatusForbidden, "read-only record", nil
	case errors.Is(err, ledger.ErrConflict):
		return http.StatusConflict, "already exists", nil
	case errors.Is(err, sheets.ErrNotConfigured):
		return http.StatusServiceUnavailable, "spreadsheet export is not configured", nil
	case errors.Is(err, identity.ErrMissingIdentity),
		errors.Is(err, identity.ErrInvalidToken),
		errors.Is(err, identity.ErrInvalidUserID):
		return http.StatusUnauthorized, "unauthorized", nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out", nil
	}
	return http.StatusInternalServerError, "internal server error", nil
}

// errorType classifies a client error status for logging.
func errorType(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return applog.ErrorTypeValidation
	case http.StatusNotFound:
		return applog.ErrorTypeNotFound
	case http.StatusConflict:
		return applog.ErrorTypeConflict
	case http.StatusUnauthorized:
		return applog.ErrorTypeAuth
	case http.StatusServiceUnavailable:
		return applog.ErrorTypeConfiguration
	}
	return applog.ErrorTypeInternal
}

// WriteError logs unexpected failures and writes the mapped error response.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg, fields := errorStatus(err)
	logger := applog.FromContext(r.Context())
	switch {
	case status == http.StatusInternalServerError:
		logger.ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path,
			applog.FieldErrorType, applog.ErrorTypeInternal,
			applog.FieldError, err)
	case status == http.StatusGatewayTimeout:
		logger.WarnContext(r.Context(), "Request timed out",
			applog.FieldPath, r.URL.Path,
			applog.FieldErrorType, applog.ErrorTypeTimeout,
			applog.FieldError, err)
	default:
		logger.DebugContext(r.Context(), "Request rejected",
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, status,
			applog.FieldErrorType, errorType(status),
			applog.FieldError, err)
	}
	NewResponse().Status(status).JSON(ErrorBody{Error: msg, Fields: fields}).Write(w)
}
