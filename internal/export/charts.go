package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"montra/internal/core"
	"montra/internal/report"
)

// Palette shared by the PDF document and the PNG charts.
const (
	ColorPrimary      = "#37474F"
	ColorPrimaryLight = "#546E7A"
	ColorAccent       = "#4DB6AC"
	ColorSurface      = "#ECEFF1"
	ColorBorder       = "#B0BEC5"
	ColorRowLine      = "#CFD8DC"
	ColorTextDark     = "#263238"
	ColorTextMuted    = "#78909C"
	ColorIncome       = "#4DB6AC"
	ColorExpense      = "#EF5350"
)

const PNGContentType = "image/png"

var (
	// ErrNoChartData is returned when a chart would have nothing to draw.
	ErrNoChartData  = errors.New("no data to chart")
	ErrUnknownChart = errors.New("unknown chart")
)

const (
	chartWidth  = 1024
	chartHeight = 512
)

func hexColor(hex string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(hex, "#"))
}

func chartBackground() chart.Style {
	return chart.Style{
		Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		FillColor: drawing.ColorWhite,
	}
}

// yRange keeps the axis valid when every value is zero.
func yRange(values ...[]float64) *chart.ContinuousRange {
	top := 0.0
	for _, vs := range values {
		for _, v := range vs {
			if v > top {
				top = v
			}
		}
	}
	if top == 0 {
		top = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: top * 1.1}
}

func moneyAxis(prefs core.DisplayPreferences) func(v interface{}) string {
	return func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return fmt.Sprintf("%s%.0f", prefs.Symbol, f)
		}
		return ""
	}
}

// CategoryPie renders the expense breakdown as a pie chart.
func CategoryPie(w io.Writer, s report.ChartSeries, prefs core.DisplayPreferences) error {
	values := make([]chart.Value, 0, len(s.Values))
	for i, v := range s.Values {
		if v <= 0 {
			continue
		}
		color := core.DefaultCategoryColor
		if i < len(s.Colors) && s.Colors[i] != "" {
			color = s.Colors[i]
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %s%.2f", s.Labels[i], prefs.Symbol, v),
			Value: v,
			Style: chart.Style{
				FillColor:   hexColor(color),
				StrokeColor: drawing.ColorWhite,
				StrokeWidth: 2,
				FontSize:    10,
				FontColor:   hexColor(ColorTextDark),
			},
		})
	}
	if len(values) == 0 {
		return ErrNoChartData
	}

	pie := chart.PieChart{
		Width:      chartHeight,
		Height:     chartHeight,
		Background: chartBackground(),
		Values:     values,
	}
	if err := pie.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render category chart: %w", err)
	}
	return nil
}

// IncomeExpenseLines renders monthly income and expense as two lines.
func IncomeExpenseLines(w io.Writer, s report.IncomeExpenseSeries, prefs core.DisplayPreferences) error {
	if len(s.Labels) == 0 {
		return ErrNoChartData
	}
	xs := make([]float64, len(s.Labels))
	ticks := make([]chart.Tick, len(s.Labels))
	for i, l := range s.Labels {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: l}
	}

	graph := chart.Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		Background: chartBackground(),
		XAxis: chart.XAxis{
			Ticks: ticks,
			Style: chart.Style{FontSize: 10, FontColor: hexColor(ColorTextMuted)},
		},
		YAxis: chart.YAxis{
			Range:          yRange(s.Income, s.Expense),
			ValueFormatter: moneyAxis(prefs),
			Style:          chart.Style{FontSize: 10, FontColor: hexColor(ColorTextMuted)},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Income",
				XValues: xs,
				YValues: s.Income,
				Style:   chart.Style{StrokeColor: hexColor(ColorIncome), StrokeWidth: 3},
			},
			chart.ContinuousSeries{
				Name:    "Expenses",
				XValues: xs,
				YValues: s.Expense,
				Style:   chart.Style{StrokeColor: hexColor(ColorExpense), StrokeWidth: 3},
			},
		},
	}
	graph.Elements = []chart.Renderable{
		chart.Legend(&graph, chart.Style{FontSize: 10, FontColor: hexColor(ColorTextDark)}),
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render monthly chart: %w", err)
	}
	return nil
}

// SpendingBars renders daily spending as a bar chart.
func SpendingBars(w io.Writer, s report.ChartSeries, prefs core.DisplayPreferences) error {
	if len(s.Values) == 0 {
		return ErrNoChartData
	}
	bars := make([]chart.Value, len(s.Values))
	for i, v := range s.Values {
		bars[i] = chart.Value{
			Label: s.Labels[i],
			Value: v,
			Style: chart.Style{FillColor: hexColor(ColorPrimaryLight), StrokeColor: hexColor(ColorPrimaryLight)},
		}
	}

	graph := chart.BarChart{
		Width:      chartWidth,
		Height:     chartHeight,
		BarWidth:   22,
		Background: chartBackground(),
		XAxis:      chart.Style{FontSize: 9, FontColor: hexColor(ColorTextMuted)},
		YAxis: chart.YAxis{
			Range:          yRange(s.Values),
			ValueFormatter: moneyAxis(prefs),
			Style:          chart.Style{FontSize: 10, FontColor: hexColor(ColorTextMuted)},
		},
		Bars: bars,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render spending chart: %w", err)
	}
	return nil
}

// renderPNG buffers a chart so callers can decide on the response after
// rendering succeeded.
func renderPNG(render func(io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ChartPNG renders one of the named charts of a dashboard.
func ChartPNG(kind string, d report.Dashboard, prefs core.DisplayPreferences) ([]byte, error) {
	switch kind {
	case "categories":
		return renderPNG(func(w io.Writer) error { return CategoryPie(w, d.Pie, prefs) })
	case "monthly":
		return renderPNG(func(w io.Writer) error { return IncomeExpenseLines(w, d.Bar, prefs) })
	case "daily":
		return renderPNG(func(w io.Writer) error { return SpendingBars(w, d.Line, prefs) })
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownChart, kind)
}
