package sheets

import (
	"context"
	"errors"
	"fmt"

	"montra/internal/export"
)

// ErrNotConfigured is returned when no spreadsheet export is set up.
var ErrNotConfigured = errors.New("spreadsheet export not configured")

// Ports for outbound adapters.
type (
	// RowExporter replaces the content of a sheet with the export header
	// followed by rows. A missing sheet is created.
	RowExporter interface {
		ExportRows(ctx context.Context, sheet string, rows []export.Row) (Result, error)
	}
)

// Result describes what was written.
type Result struct {
	SpreadsheetID string `json:"spreadsheet_id,omitempty"`
	Range         string `json:"range"`
	Rows          int    `json:"rows"`
}

// UserSheet names the tab holding the export of userID.
func UserSheet(base string, userID int64) string {
	return fmt.Sprintf("%s-%d", base, userID)
}

// Values lays out the header and rows as a spreadsheet matrix.
func Values(rows []export.Row) [][]any {
	out := make([][]any, 0, len(rows)+1)
	out = append(out, toAny(export.Header))
	for _, r := range rows {
		out = append(out, toAny(r.Values()))
	}
	return out
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
