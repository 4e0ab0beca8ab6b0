package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"montra/internal/core"
	"montra/internal/report"
)

const (
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	XLSXFilename    = "montra_transactions.xlsx"

	transactionsSheet = "Transactions"
	summarySheet      = "Summary"
)

var xlsxWidths = []float64{12, 8, 10, 22, 12, 22, 40}

// WriteXLSX writes a workbook with the transaction rows and a summary sheet.
// Amounts are numeric cells so spreadsheet formulas work on them.
func WriteXLSX(w io.Writer, st report.Statement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"37474F"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	for i, h := range Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(transactionsSheet, cell, h)
	}
	if err := f.SetCellStyle(transactionsSheet, "A1", "G1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, tx := range st.Transactions {
		r := NewRow(tx, st.CategoryName(tx))
		row := i + 2
		values := []any{r.Date, r.Time, r.Type, r.Category, core.Float(tx.Amount), r.PaymentMethod, r.Notes}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(transactionsSheet, cell, v)
		}
	}
	for i, width := range xlsxWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(transactionsSheet, col, col, width)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]any{
		{"Period", st.Window.Label},
		{"Currency", st.Display.CurrencyCode},
		{"Income", core.Float(st.Summary.Income)},
		{"Expenses", core.Float(st.Summary.Expense)},
		{"Net Savings", core.Float(st.Summary.Net)},
		{"Transactions", len(st.Transactions)},
	}
	for i, line := range summary {
		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", i+1), line[0])
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", i+1), line[1])
	}
	f.SetColWidth(summarySheet, "A", "A", 16)
	f.SetColWidth(summarySheet, "B", "B", 20)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
