package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"montra/internal/core"
	"montra/internal/report"
)

var generated = time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

func statement(n int) report.Statement {
	food := int64(1)
	gone := int64(99)
	st := report.Statement{
		UserID:      1,
		Period:      core.PeriodAll,
		Window:      core.Window{Label: "All Time"},
		Categories:  map[int64]core.Category{1: {ID: 1, Name: "Food", Color: "#FFB74D"}},
		Display:     core.NewDisplayPreferences("EUR", core.ThemeLight),
		PreparedFor: "Ada",
		GeneratedAt: generated,
	}
	total := decimal.Zero
	for i := 0; i < n; i++ {
		tx := core.Transaction{
			ID:            int64(i + 1),
			UserID:        1,
			Amount:        decimal.NewFromInt(int64(i + 1)),
			Type:          core.Expense,
			Date:          generated.Add(-time.Duration(i) * time.Hour),
			PaymentMethod: core.Card,
			Notes:         fmt.Sprintf("note %d", i),
		}
		switch i % 3 {
		case 0:
			tx.CategoryID = &food
		case 1:
			tx.CategoryID = &gone
		}
		total = total.Add(tx.Amount)
		st.Transactions = append(st.Transactions, tx)
	}
	st.Summary = report.Summary{Income: decimal.Zero, Expense: total, Net: total.Neg()}
	if n > 0 {
		st.Breakdown = []report.CategoryShare{{Name: "Food", Color: "#FFB74D", Total: total, Percentage: 100}}
	}
	return st
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, statement(3)))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{"2025-03-15", "10:30", "Expense", "Food", "1.00", "Credit/Debit Card", "note 0"}, records[1])
	assert.Equal(t, core.NoCategory, records[2][3], "dangling category id")
	assert.Equal(t, core.NoCategory, records[3][3], "no category")
}

func TestWriteCSVEmptyHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, statement(0)))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{Header}, records)
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, statement(2)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{transactionsSheet, summarySheet}, f.GetSheetList())
	h, err := f.GetCellValue(transactionsSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Date", h)
	cat, err := f.GetCellValue(transactionsSheet, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Food", cat)
	amount, err := f.GetCellValue(transactionsSheet, "E3")
	require.NoError(t, err)
	assert.Equal(t, "2", amount)
	currency, err := f.GetCellValue(summarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "EUR", currency)
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, statement(5)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDFManyRowsAndUnprintableSymbol(t *testing.T) {
	st := statement(MaxPDFRows + 40)
	st.Display = core.NewDisplayPreferences("INR", core.ThemeLight)

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, st))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestWritePDFEmptyStatement(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, statement(0)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestPDFMoneyFallsBackToCurrencyCode(t *testing.T) {
	d := &pdfDoc{prefs: core.NewDisplayPreferences("INR", core.ThemeLight)}
	assert.Equal(t, "INR 1,200.00", d.money(decimal.NewFromInt(1200)))
	d.prefs = core.NewDisplayPreferences("GBP", core.ThemeLight)
	assert.Equal(t, "£5.50", d.money(decimal.RequireFromString("5.5")))
}

func TestParseHex(t *testing.T) {
	assert.Equal(t, rgb{0x37, 0x47, 0x4F}, parseHex(ColorPrimary))
	assert.Equal(t, rgb{0, 0, 0}, parseHex("nope"))
}

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestChartPNG(t *testing.T) {
	prefs := core.NewDisplayPreferences("USD", core.ThemeLight)
	d := report.Dashboard{
		Pie:  report.ChartSeries{Labels: []string{"Food", "Rent"}, Values: []float64{40, 60}, Colors: []string{"#FFB74D", ""}},
		Bar:  report.IncomeExpenseSeries{Labels: []string{"Feb", "Mar"}, Income: []float64{100, 0}, Expense: []float64{50, 0}},
		Line: report.ChartSeries{Labels: []string{"14", "15"}, Values: []float64{0, 0}},
	}
	for _, kind := range []string{"categories", "monthly", "daily"} {
		t.Run(kind, func(t *testing.T) {
			img, err := ChartPNG(kind, d, prefs)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, pngMagic))
		})
	}
}

func TestChartPNGErrors(t *testing.T) {
	prefs := core.NewDisplayPreferences("USD", core.ThemeLight)
	_, err := ChartPNG("categories", report.Dashboard{}, prefs)
	assert.ErrorIs(t, err, ErrNoChartData)

	_, err = ChartPNG("radar", report.Dashboard{}, prefs)
	assert.ErrorIs(t, err, ErrUnknownChart)
}
