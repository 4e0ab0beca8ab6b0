package memory

import (
	"context"
	"fmt"
	"sync"

	"montra/internal/export"
	"montra/internal/sheets"
)

// Exporter keeps the last export of every sheet in memory.
type Exporter struct {
	mu     sync.Mutex
	sheets map[string][][]any
}

func New() *Exporter {
	return &Exporter{sheets: make(map[string][][]any)}
}

var _ sheets.RowExporter = (*Exporter)(nil)

func (e *Exporter) ExportRows(ctx context.Context, sheet string, rows []export.Row) (sheets.Result, error) {
	if err := ctx.Err(); err != nil {
		return sheets.Result{}, err
	}
	values := sheets.Values(rows)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sheets[sheet] = values
	return sheets.Result{
		Range: fmt.Sprintf("%s!A1:G%d", sheet, len(values)),
		Rows:  len(rows),
	}, nil
}

// Sheet returns a copy of the values last written to name.
func (e *Exporter) Sheet(name string) ([][]any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.sheets[name]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), v...), true
}
