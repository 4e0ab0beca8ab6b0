// Package export renders statements as CSV, XLSX, PDF and PNG charts.
package export

import (
	"montra/internal/core"
	"montra/internal/report"
)

// Header is the fixed column order of every row-oriented export.
var Header = []string{"Date", "Time", "Type", "Category", "Amount", "Payment Method", "Notes"}

// Row is one transaction flattened for spreadsheets.
type Row struct {
	Date          string
	Time          string
	Type          string
	Category      string
	Amount        string
	PaymentMethod string
	Notes         string
}

func (r Row) Values() []string {
	return []string{r.Date, r.Time, r.Type, r.Category, r.Amount, r.PaymentMethod, r.Notes}
}

// Rows flattens the statement transactions, keeping their date-descending
// order. Transactions without a category get the placeholder marker.
func Rows(st report.Statement) []Row {
	out := make([]Row, 0, len(st.Transactions))
	for _, tx := range st.Transactions {
		out = append(out, NewRow(tx, st.CategoryName(tx)))
	}
	return out
}

func NewRow(tx core.Transaction, category string) Row {
	if category == "" {
		category = core.NoCategory
	}
	return Row{
		Date:          tx.Date.Format("2006-01-02"),
		Time:          tx.Date.Format("15:04"),
		Type:          tx.Type.Title(),
		Category:      category,
		Amount:        tx.Amount.StringFixed(2),
		PaymentMethod: tx.PaymentMethod.Label(),
		Notes:         tx.Notes,
	}
}
