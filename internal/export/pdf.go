package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"montra/internal/core"
	"montra/internal/report"
)

const (
	PDFContentType = "application/pdf"
	PDFFilename    = "montra_report.pdf"

	// MaxPDFRows caps the transaction table of the document.
	MaxPDFRows = 100
)

const (
	inch         = 25.4
	marginSide   = 0.6 * inch
	marginTop    = 0.6 * inch
	marginBottom = 0.5 * inch
	tableRowH    = 7.0
)

var (
	summaryWidths = []float64{2.2 * inch, 2.2 * inch, 2.2 * inch}
	txWidths      = []float64{1 * inch, 0.7 * inch, 0.7 * inch, 1.4 * inch, 0.9 * inch, 1 * inch}
	txHeader      = []string{"Date", "Time", "Type", "Category", "Amount", "Payment"}
)

// Currency symbols the core PDF fonts can print. Others fall back to the code.
var pdfSymbols = map[string]bool{"$": true, "€": true, "£": true, "¥": true, "C$": true, "A$": true, "Rs": true}

type rgb struct{ r, g, b int }

func parseHex(hex string) rgb {
	hex = strings.TrimPrefix(hex, "#")
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil || len(hex) != 6 {
		return rgb{0, 0, 0}
	}
	return rgb{int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)}
}

type pdfDoc struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	prefs core.DisplayPreferences
}

func (d *pdfDoc) text(hex string) {
	c := parseHex(hex)
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

func (d *pdfDoc) fill(hex string) {
	c := parseHex(hex)
	d.pdf.SetFillColor(c.r, c.g, c.b)
}

func (d *pdfDoc) draw(hex string) {
	c := parseHex(hex)
	d.pdf.SetDrawColor(c.r, c.g, c.b)
}

func (d *pdfDoc) money(v decimal.Decimal) string {
	p := d.prefs
	if !pdfSymbols[p.Symbol] {
		p.Symbol = p.CurrencyCode + " "
	}
	return p.FormatMoney(v)
}

// rule draws a horizontal line across the printable width. Thickness is in
// points.
func (d *pdfDoc) rule(hex string, thickness float64) {
	w, _ := d.pdf.GetPageSize()
	y := d.pdf.GetY()
	d.draw(hex)
	d.pdf.SetLineWidth(thickness * inch / 72)
	d.pdf.Line(marginSide, y, w-marginSide, y)
}

// fit shortens s with an ellipsis until it fits in width.
func (d *pdfDoc) fit(s string, width float64) string {
	s = d.tr(s)
	if d.pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 1 && d.pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// WritePDF renders the statement as an A4 report: header, summary table,
// at most MaxPDFRows transactions (date descending) and a footer on every
// page. When the statement has a category breakdown a pie chart is appended.
func WritePDF(w io.Writer, st report.Statement) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginSide, marginTop, marginSide)
	pdf.SetAutoPageBreak(false, marginBottom)
	d := &pdfDoc{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), prefs: st.Display}

	generated := st.GeneratedAt
	pdf.SetFooterFunc(func() {
		_, h := pdf.GetPageSize()
		pdf.SetY(h - marginBottom - 4)
		d.rule(ColorBorder, 0.5)
		pdf.Ln(1.5)
		pdf.SetFont("Helvetica", "", 8)
		d.text(ColorTextMuted)
		pdf.CellFormat(0, 4, d.tr("Montra Financial Tracker · Generated "+generated.Format("Jan 02, 2006")), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	d.header(st)
	d.summary(st)
	d.transactions(st)
	if err := d.chart(st); err != nil {
		return err
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (d *pdfDoc) header(st report.Statement) {
	pdf := d.pdf
	pdf.SetFont("Helvetica", "B", 22)
	d.text(ColorPrimary)
	pdf.CellFormat(0, 10, "Montra", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	d.text(ColorTextMuted)
	pdf.CellFormat(0, 5, "Financial Report", "", 1, "L", false, 0, "")
	pdf.Ln(2.5)
	d.rule(ColorBorder, 1.5)
	pdf.Ln(4)

	d.text(ColorTextDark)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Write(5, "Prepared for ")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Write(5, d.tr(st.PreparedFor))
	pdf.Ln(5)
	pdf.SetFont("Helvetica", "", 10)
	d.text(ColorTextMuted)
	pdf.CellFormat(0, 5, "Generated on "+st.GeneratedAt.Format("January 02, 2006"), "", 1, "L", false, 0, "")
	pdf.Ln(6)
}

func (d *pdfDoc) heading(title string) {
	pdf := d.pdf
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 13)
	d.text(ColorPrimary)
	pdf.CellFormat(0, 8, d.tr(title), "", 1, "L", false, 0, "")
	pdf.Ln(1)
}

func (d *pdfDoc) summary(st report.Statement) {
	pdf := d.pdf
	d.heading("Summary — " + st.Window.Label)

	d.draw(ColorBorder)
	pdf.SetLineWidth(0.5 * inch / 72)
	d.fill(ColorSurface)
	pdf.SetFont("Helvetica", "", 9)
	d.text(ColorTextMuted)
	for i, label := range []string{"Income", "Expenses", "Net Savings"} {
		pdf.CellFormat(summaryWidths[i], 8, label, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	values := []struct {
		amount decimal.Decimal
		color  string
	}{
		{st.Summary.Income, ColorIncome},
		{st.Summary.Expense, ColorExpense},
		{st.Summary.Net, ColorPrimary},
	}
	pdf.SetFont("Helvetica", "B", 14)
	for i, v := range values {
		d.text(v.color)
		pdf.CellFormat(summaryWidths[i], 11, d.tr(d.money(v.amount)), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.Ln(5)
}

func (d *pdfDoc) tableHeader() {
	pdf := d.pdf
	d.fill(ColorPrimary)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range txHeader {
		pdf.CellFormat(txWidths[i], 8, h, "", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

func (d *pdfDoc) transactions(st report.Statement) {
	pdf := d.pdf
	d.heading("Transactions — " + st.Window.Label)
	d.tableHeader()

	_, pageH := pdf.GetPageSize()
	limit := pageH - marginBottom - 8
	rows := st.Transactions
	if len(rows) > MaxPDFRows {
		rows = rows[:MaxPDFRows]
	}
	x0 := marginSide
	for i, tx := range rows {
		if pdf.GetY()+tableRowH > limit {
			pdf.AddPage()
			d.tableHeader()
		}
		if i%2 == 1 {
			d.fill(ColorSurface)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont("Helvetica", "", 8.5)
		d.text(ColorTextDark)
		cells := []string{
			tx.Date.Format("Jan 02, 2006"),
			tx.Date.Format("03:04 PM"),
			tx.Type.Title(),
			st.CategoryName(tx),
			d.money(tx.Amount),
			tx.PaymentMethod.Label(),
		}
		y := pdf.GetY()
		for j, c := range cells {
			pdf.CellFormat(txWidths[j], tableRowH, d.fit(c, txWidths[j]-2), "", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		lineColor, thickness := ColorRowLine, 0.5
		if i == len(rows)-1 {
			lineColor, thickness = ColorBorder, 1.0
		}
		d.draw(lineColor)
		pdf.SetLineWidth(thickness * inch / 72)
		pdf.Line(x0, y+tableRowH, x0+sum(txWidths), y+tableRowH)
	}
	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		d.text(ColorTextMuted)
		pdf.CellFormat(sum(txWidths), tableRowH, "No transactions in this period.", "", 1, "C", false, 0, "")
	}
}

func (d *pdfDoc) chart(st report.Statement) error {
	if len(st.Breakdown) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := CategoryPie(&buf, report.CategorySeries(st.Breakdown), st.Display); err != nil {
		if errors.Is(err, ErrNoChartData) {
			return nil
		}
		return err
	}

	pdf := d.pdf
	const size = 80.0
	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+size+20 > pageH-marginBottom-8 {
		pdf.AddPage()
	}
	d.heading("Spending by Category")
	opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("categories", opts, &buf)
	pageW, _ := pdf.GetPageSize()
	pdf.ImageOptions("categories", (pageW-size)/2, pdf.GetY(), size, size, true, opts, 0, "")
	return pdf.Error()
}

func sum(xs []float64) float64 {
	t := 0.0
	for _, x := range xs {
		t += x
	}
	return t
}
