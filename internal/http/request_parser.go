// Package http provides the Montra JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request data.
// Field problems are collected into a core.ValidationError so a client gets
// every message of a form in one response.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/core"
	"montra/internal/ledger"
)

const (
	maxBodyBytes = 1 << 20
	pageSize     = 50
)

// errMalformedBody marks bodies that are neither valid JSON nor form data.
var errMalformedBody = errors.New("malformed request body")

const (
	msgRequired     = "This field is required."
	msgNumber       = "Enter a number."
	msgMinAmount    = "Ensure this value is greater than or equal to 0.01."
	msgNonNegative  = "Ensure this value is greater than or equal to 0."
	msgChoice       = "Select a valid choice. That choice is not one of the available choices."
	msgDateTime     = "Enter a valid date/time."
	msgDate         = "Enter a valid date."
	msgMonth        = "Enter a valid month in the form YYYY-MM."
	msgPositiveOnly = "Amount must be positive."
)

// dateTimeLayouts are the accepted forms of a transaction date.
var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	body := bytes.TrimSpace(p.body)
	if len(body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		p.err = dec.Decode(&p.jsonData)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// Has reports whether key was sent at all, even empty.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	_, ok := p.formData[key]
	return ok
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formReader reads typed fields from a parsed body and remembers the first
// problem of each field.
type formReader struct {
	p      *RequestBodyParser
	loc    *time.Location
	fields map[string]string
}

// readForm parses the body of r. A malformed body is reported as an error
// for the whole request.
func readForm(r *http.Request, loc *time.Location) (*formReader, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %w", errMalformedBody, err)
	}
	return &formReader{p: p, loc: loc}, nil
}

func (f *formReader) fail(field, msg string) {
	if f.fields == nil {
		f.fields = make(map[string]string)
	}
	if _, ok := f.fields[field]; !ok {
		f.fields[field] = msg
	}
}

func (f *formReader) String(key string) string { return f.p.Get(key) }

// Amount reads a required amount of at least 0.01.
func (f *formReader) Amount(key string) decimal.Decimal {
	raw := f.p.Get(key)
	if raw == "" {
		f.fail(key, msgRequired)
		return decimal.Zero
	}
	d, err := core.ParseAmount(raw)
	switch {
	case errors.Is(err, core.ErrNonPositiveAmount):
		f.fail(key, msgMinAmount)
	case err != nil:
		f.fail(key, msgNumber)
	}
	return d
}

// OptionalAmount reads a non-negative amount; empty is zero.
func (f *formReader) OptionalAmount(key string) decimal.Decimal {
	d, err := core.ParseNonNegativeAmount(f.p.Get(key))
	switch {
	case errors.Is(err, core.ErrNonPositiveAmount):
		f.fail(key, msgNonNegative)
	case err != nil:
		f.fail(key, msgNumber)
	}
	return d
}

func (f *formReader) TransactionType(key string) core.TransactionType {
	raw := f.p.Get(key)
	if raw == "" {
		f.fail(key, msgRequired)
		return ""
	}
	t, err := core.ParseTransactionType(raw)
	if err != nil {
		f.fail(key, msgChoice)
	}
	return t
}

func (f *formReader) PaymentMethod(key string) core.PaymentMethod {
	pm, err := core.ParsePaymentMethod(f.p.Get(key))
	if err != nil {
		f.fail(key, msgChoice)
	}
	return pm
}

// OptionalID reads a positive id; empty or null yields nil.
func (f *formReader) OptionalID(key string) *int64 {
	raw := f.p.Get(key)
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		f.fail(key, msgChoice)
		return nil
	}
	return &id
}

func (f *formReader) ID(key string) int64 {
	if f.p.Get(key) == "" {
		f.fail(key, msgRequired)
		return 0
	}
	if id := f.OptionalID(key); id != nil {
		return *id
	}
	return 0
}

// DateTime reads a local date and time; empty yields the zero time.
func (f *formReader) DateTime(key string) time.Time {
	raw := f.p.Get(key)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, raw, f.loc); err == nil {
			return t.In(f.loc)
		}
	}
	f.fail(key, msgDateTime)
	return time.Time{}
}

// Date reads an optional YYYY-MM-DD value.
func (f *formReader) Date(key string) *time.Time {
	raw := f.p.Get(key)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, f.loc)
	if err != nil {
		f.fail(key, msgDate)
		return nil
	}
	return &t
}

// Month reads a required month given as YYYY-MM or any day of the month.
func (f *formReader) Month(key string) time.Time {
	raw := f.p.Get(key)
	if raw == "" {
		f.fail(key, msgRequired)
		return time.Time{}
	}
	if t, err := core.ParseMonthKey(raw, f.loc); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, f.loc); err == nil {
		return core.MonthStart(t)
	}
	f.fail(key, msgMonth)
	return time.Time{}
}

// Err returns the collected field problems.
func (f *formReader) Err() error {
	if len(f.fields) == 0 {
		return nil
	}
	return &core.ValidationError{Fields: f.fields}
}

// ParsePathID reads the {id} path segment. Malformed ids are reported as not
// found.
func ParsePathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, ledger.ErrNotFound
	}
	return id, nil
}

// PageInfo describes one page of a paginated list.
type PageInfo struct {
	Number      int  `json:"number"`
	TotalPages  int  `json:"total_pages"`
	Total       int  `json:"total"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// ParsePage resolves the requested page against total items. Invalid input
// selects the first page and out of range numbers the last.
func ParsePage(raw string, total, size int) PageInfo {
	pages := int(math.Ceil(float64(total) / float64(size)))
	if pages < 1 {
		pages = 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		n = 1
	}
	if n > pages {
		n = pages
	}
	return PageInfo{
		Number:      n,
		TotalPages:  pages,
		Total:       total,
		HasNext:     n < pages,
		HasPrevious: n > 1,
	}
}

// Offset returns the index of the first item of the page.
func (p PageInfo) Offset(size int) int {
	return (p.Number - 1) * size
}

// ParseYear reads the optional year query value; empty selects def.
func ParseYear(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	y, err := strconv.Atoi(raw)
	if err != nil || y < 1900 || y > 9999 {
		return 0, core.FieldError("year", core.ErrInvalidDate, "Enter a valid year.")
	}
	return y, nil
}
