package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"montra/internal/report"
)

const (
	CSVContentType = "text/csv"
	CSVFilename    = "montra_transactions.csv"
)

// WriteCSV writes the header and one line per transaction.
func WriteCSV(w io.Writer, st report.Statement) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range Rows(st) {
		if err := cw.Write(r.Values()); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
