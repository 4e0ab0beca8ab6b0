package report

import (
	"context"

	"github.com/shopspring/decimal"

	"montra/internal/core"
)

const (
	annualTopCategories = 10
	availableYearSpan   = 5
)

type MonthRow struct {
	Month   string `json:"month"`
	Income  Money  `json:"income"`
	Expense Money  `json:"expense"`
	Net     Money  `json:"net"`
}

type AnnualReport struct {
	Year           int                 `json:"year"`
	AvailableYears []int               `json:"available_years"`
	Display        Display             `json:"display"`
	Income         Money               `json:"annual_income"`
	Expense        Money               `json:"annual_expenses"`
	Net            Money               `json:"annual_net"`
	Months         []MonthRow          `json:"monthly_summary"`
	TopCategories  []CategoryShareView `json:"top_categories"`
	Monthly        IncomeExpenseSeries `json:"monthly"`
	Categories     ChartSeries         `json:"categories"`
	Savings        ChartSeries         `json:"savings"`
}

// AvailableYears lists the current year and the four before it, newest first.
func AvailableYears(current int) []int {
	years := make([]int, 0, availableYearSpan)
	for y := current; y > current-availableYearSpan; y-- {
		years = append(years, y)
	}
	return years
}

// Annual builds the yearly report. A zero year selects the current one.
func (e *Engine) Annual(ctx context.Context, userID int64, year int, prefs core.DisplayPreferences) (AnnualReport, error) {
	now := e.Now()
	if year == 0 {
		year = now.Year()
	}

	buckets, err := e.MonthlySeries(ctx, userID, year)
	if err != nil {
		return AnnualReport{}, err
	}
	top, err := e.CategoryBreakdown(ctx, userID, core.YearWindow(year, e.loc), annualTopCategories)
	if err != nil {
		return AnnualReport{}, err
	}

	r := AnnualReport{
		Year:           year,
		AvailableYears: AvailableYears(now.Year()),
		Display:        NewDisplay(prefs),
		Months:         make([]MonthRow, 0, len(buckets)),
		TopCategories:  NewCategoryShareViews(top, prefs),
		Monthly:        MonthSeries(buckets),
		Categories:     CategorySeries(top),
		Savings: ChartSeries{
			Labels: make([]string, 0, len(buckets)),
			Values: make([]float64, 0, len(buckets)),
		},
	}

	income, expense, running := decimal.Zero, decimal.Zero, decimal.Zero
	for _, b := range buckets {
		income = income.Add(b.Income)
		expense = expense.Add(b.Expense)
		running = running.Add(b.Net)
		r.Months = append(r.Months, MonthRow{
			Month:   b.Label,
			Income:  NewMoney(b.Income, prefs),
			Expense: NewMoney(b.Expense, prefs),
			Net:     NewMoney(b.Net, prefs),
		})
		r.Savings.Labels = append(r.Savings.Labels, b.Label)
		r.Savings.Values = append(r.Savings.Values, core.Float(running))
	}
	r.Income = NewMoney(income, prefs)
	r.Expense = NewMoney(expense, prefs)
	r.Net = NewMoney(income.Sub(expense), prefs)
	return r, nil
}
