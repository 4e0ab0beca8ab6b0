package report

import (
	"context"
	"fmt"

	"montra/internal/core"
	"montra/internal/ledger"
)

const (
	dashboardRecent    = 5
	dashboardPieSlices = 8
	dashboardBarMonths = 6
	dashboardLineDays  = 30
)

type Dashboard struct {
	Greeting           string              `json:"greeting"`
	Month              string              `json:"month"`
	Display            Display             `json:"display"`
	TotalBalance       Money               `json:"total_balance"`
	MonthlyIncome      Money               `json:"monthly_income"`
	MonthlyExpenses    Money               `json:"monthly_expenses"`
	MonthlySavings     Money               `json:"monthly_savings"`
	RecentTransactions []TransactionView   `json:"recent_transactions"`
	Pie                ChartSeries         `json:"pie"`
	Bar                IncomeExpenseSeries `json:"bar"`
	Line               ChartSeries         `json:"line"`
	BudgetWarnings     []BudgetView        `json:"budget_warnings"`
	Insights           []Insight           `json:"insights"`
}

// Dashboard assembles the overview of the current month for userID. The
// month-to-date window runs from the first of the month through today.
func (e *Engine) Dashboard(ctx context.Context, userID int64, prefs core.DisplayPreferences) (Dashboard, error) {
	now := e.Now()
	monthStart := core.MonthStart(now)
	mtd := core.Window{From: monthStart, To: core.DayStart(now).AddDate(0, 0, 1), Label: monthStart.Format("January 2006")}

	current, err := e.Summary(ctx, userID, mtd)
	if err != nil {
		return Dashboard{}, err
	}
	allTime, err := e.Summary(ctx, userID, core.Window{})
	if err != nil {
		return Dashboard{}, err
	}
	previous, err := e.Summary(ctx, userID, core.Window{From: core.AddMonths(monthStart, -1), To: monthStart})
	if err != nil {
		return Dashboard{}, err
	}

	cats, err := e.CategoryIndex(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := e.store.Transactions().List(ctx, ledger.TransactionFilter{UserID: userID, Limit: dashboardRecent})
	if err != nil {
		return Dashboard{}, fmt.Errorf("list recent transactions: %w", err)
	}
	pie, err := e.CategoryBreakdown(ctx, userID, mtd, dashboardPieSlices)
	if err != nil {
		return Dashboard{}, err
	}
	bars, err := e.TrailingMonths(ctx, userID, now, dashboardBarMonths)
	if err != nil {
		return Dashboard{}, err
	}
	days, err := e.TrailingDays(ctx, userID, now, dashboardLineDays)
	if err != nil {
		return Dashboard{}, err
	}
	warnings, err := e.BudgetWarnings(ctx, userID, now)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Greeting:           core.Greeting(now.Hour()),
		Month:              mtd.Label,
		Display:            NewDisplay(prefs),
		TotalBalance:       NewMoney(allTime.Net, prefs),
		MonthlyIncome:      NewMoney(current.Income, prefs),
		MonthlyExpenses:    NewMoney(current.Expense, prefs),
		MonthlySavings:     NewMoney(current.Net, prefs),
		RecentTransactions: TransactionViews(recent, cats, prefs),
		Pie:                CategorySeries(pie),
		Bar:                MonthSeries(bars),
		Line:               DaySeries(days),
		BudgetWarnings:     make([]BudgetView, 0, len(warnings)),
		Insights:           GenerateInsights(current.Income, current.Expense, previous.Expense),
	}
	for _, w := range warnings {
		d.BudgetWarnings = append(d.BudgetWarnings, NewBudgetView(w, cats, prefs))
	}
	return d, nil
}
