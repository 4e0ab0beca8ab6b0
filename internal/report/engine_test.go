package report

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"montra/internal/core"
	"montra/internal/ledger"
	"montra/internal/ledger/memory"
)

var fixedNow = time.Date(2025, time.March, 15, 10, 30, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	store *memory.Store
	eng   *Engine
}

func newFixture(t *testing.T) *fixture {
	store := memory.New()
	return &fixture{
		t:     t,
		store: store,
		eng:   NewEngine(store, time.UTC).WithClock(func() time.Time { return fixedNow }),
	}
}

func (f *fixture) category(name, color string) core.Category {
	c, _, err := f.store.Categories().UpsertSystem(context.Background(), core.Category{Name: name, Icon: "category", Color: color})
	require.NoError(f.t, err)
	return c
}

func (f *fixture) add(typ core.TransactionType, amount string, cat *core.Category, when time.Time) {
	tx := core.Transaction{
		UserID:        1,
		Amount:        decimal.RequireFromString(amount),
		Type:          typ,
		Date:          when,
		PaymentMethod: core.Cash,
	}
	if cat != nil {
		id := cat.ID
		tx.CategoryID = &id
	}
	_, err := f.store.Transactions().Insert(context.Background(), tx)
	require.NoError(f.t, err)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestMonthlySeriesEmptyYearIsZeroFilled(t *testing.T) {
	f := newFixture(t)
	buckets, err := f.eng.MonthlySeries(context.Background(), 1, 2024)
	require.NoError(t, err)
	require.Len(t, buckets, 12)
	for i, b := range buckets {
		assert.True(t, b.Income.IsZero(), "month %d income", i)
		assert.True(t, b.Expense.IsZero(), "month %d expense", i)
		assert.True(t, b.Net.IsZero(), "month %d net", i)
	}
	assert.Equal(t, "Jan", buckets[0].Label)
	assert.Equal(t, "Dec", buckets[11].Label)
}

func TestMonthlyNetsAddUpToAnnualNet(t *testing.T) {
	f := newFixture(t)
	food := f.category("Food", "#FFB74D")
	f.add(core.Income, "1000.10", nil, day(2025, 1, 5))
	f.add(core.Expense, "250.35", &food, day(2025, 1, 20))
	f.add(core.Expense, "99.99", &food, day(2025, 2, 1))
	f.add(core.Income, "10", nil, day(2025, 12, 31))
	f.add(core.Expense, "500", nil, day(2024, 12, 31))

	ctx := context.Background()
	buckets, err := f.eng.MonthlySeries(ctx, 1, 2025)
	require.NoError(t, err)
	annual, err := f.eng.Summary(ctx, 1, core.YearWindow(2025, time.UTC))
	require.NoError(t, err)

	net := decimal.Zero
	for _, b := range buckets {
		assert.True(t, b.Income.Sub(b.Expense).Equal(b.Net))
		net = net.Add(b.Net)
	}
	assert.True(t, annual.Income.Sub(annual.Expense).Equal(annual.Net))
	assert.True(t, net.Equal(annual.Net), "monthly nets %s != annual %s", net, annual.Net)
	assert.Equal(t, "659.76", annual.Net.StringFixed(2))
}

func TestCategoryBreakdownIsMaxNormalised(t *testing.T) {
	f := newFixture(t)
	a := f.category("A", "#111111")
	b := f.category("B", "#222222")
	c := f.category("C", "#333333")
	f.add(core.Expense, "50", &a, day(2025, 3, 1))
	f.add(core.Expense, "100", &b, day(2025, 3, 2))
	f.add(core.Expense, "25", &c, day(2025, 3, 3))

	rows, err := f.eng.CategoryBreakdown(context.Background(), 1, core.MonthWindow(fixedNow), 0)
	require.NoError(t, err)
	byName := map[string]float64{}
	for _, r := range rows {
		byName[r.Name] = r.Percentage
	}
	assert.Equal(t, map[string]float64{"A": 50.0, "B": 100.0, "C": 25.0}, byName)
	assert.Equal(t, "B", rows[0].Name)
}

func TestCategoryBreakdownEmptyAndUncategorised(t *testing.T) {
	f := newFixture(t)
	rows, err := f.eng.CategoryBreakdown(context.Background(), 1, core.Window{}, 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	f.add(core.Expense, "5", nil, day(2025, 3, 1))
	rows, err = f.eng.CategoryBreakdown(context.Background(), 1, core.Window{}, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, core.UncategorizedName, rows[0].Name)
	assert.Equal(t, core.DefaultCategoryColor, rows[0].Color)
	assert.Equal(t, 100.0, rows[0].Percentage)
}

func TestTrailingWindowsAreCalendarAligned(t *testing.T) {
	f := newFixture(t)
	f.add(core.Expense, "7", nil, time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC))
	f.add(core.Expense, "3", nil, time.Date(2025, 3, 15, 23, 59, 0, 0, time.UTC))
	f.add(core.Income, "40", nil, time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC))
	f.add(core.Income, "99", nil, time.Date(2024, 9, 30, 23, 0, 0, 0, time.UTC))

	ctx := context.Background()
	months, err := f.eng.TrailingMonths(ctx, 1, fixedNow, 6)
	require.NoError(t, err)
	require.Len(t, months, 6)
	assert.Equal(t, "Oct", months[0].Label)
	assert.Equal(t, "Mar", months[5].Label)
	assert.Equal(t, "40", months[0].Income.String())

	days, err := f.eng.TrailingDays(ctx, 1, fixedNow, 30)
	require.NoError(t, err)
	require.Len(t, days, 30)
	assert.Equal(t, "14", days[0].Label)
	assert.Equal(t, "7", days[0].Expense.String())
	assert.Equal(t, "15", days[29].Label)
	assert.Equal(t, "3", days[29].Expense.String())
}

func TestBudgetWarningsOnlyExceeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	food := f.category("Food", "#FFB74D")
	rent := f.category("Rent", "#90A4AE")
	month := core.MonthStart(fixedNow)
	_, err := f.store.Budgets().Insert(ctx, core.Budget{UserID: 1, CategoryID: food.ID, Amount: decimal.NewFromInt(100), Month: month})
	require.NoError(t, err)
	_, err = f.store.Budgets().Insert(ctx, core.Budget{UserID: 1, CategoryID: rent.ID, Amount: decimal.NewFromInt(100), Month: month})
	require.NoError(t, err)

	f.add(core.Expense, "100.00", &rent, day(2025, 3, 2))
	f.add(core.Expense, "100.01", &food, day(2025, 3, 2))
	f.add(core.Expense, "500", &food, day(2025, 2, 2))

	warnings, err := f.eng.BudgetWarnings(ctx, 1, fixedNow)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, food.ID, warnings[0].Budget.CategoryID)
	assert.Equal(t, 100.0, warnings[0].Percentage)

	all, err := f.eng.BudgetStatuses(ctx, ledger.BudgetFilter{UserID: 1})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	food := f.category("Food", "#FFB74D")
	f.add(core.Income, "300", nil, day(2025, 3, 1))
	f.add(core.Expense, "220", &food, day(2025, 3, 10))
	f.add(core.Expense, "200", nil, day(2025, 2, 10))
	f.add(core.Expense, "50", nil, day(2025, 3, 20)) // after today, outside month-to-date

	prefs := core.NewDisplayPreferences("EUR", core.ThemeDark)
	d, err := f.eng.Dashboard(context.Background(), 1, prefs)
	require.NoError(t, err)

	assert.Equal(t, "Morning", d.Greeting)
	assert.Equal(t, "March 2025", d.Month)
	assert.Equal(t, 300.0, d.MonthlyIncome.Value)
	assert.Equal(t, 220.0, d.MonthlyExpenses.Value)
	assert.Equal(t, "€80.00", d.MonthlySavings.Display)
	assert.Equal(t, -170.0, d.TotalBalance.Value)
	assert.Len(t, d.RecentTransactions, 4)
	assert.Equal(t, []string{"Food"}, d.Pie.Labels)
	assert.Equal(t, []string{"#FFB74D"}, d.Pie.Colors)
	assert.Len(t, d.Bar.Labels, 6)
	assert.Len(t, d.Line.Values, 30)
	assert.Equal(t, "EUR", d.Display.CurrencyCode)

	kinds := []InsightKind{}
	for _, in := range d.Insights {
		kinds = append(kinds, in.Kind)
	}
	assert.Equal(t, []InsightKind{InsightSpentMore, InsightSavingsRate}, kinds)
}

func TestAnnualReport(t *testing.T) {
	f := newFixture(t)
	food := f.category("Food", "#FFB74D")
	f.add(core.Income, "100", nil, day(2025, 1, 1))
	f.add(core.Expense, "40", &food, day(2025, 2, 1))
	f.add(core.Expense, "10", nil, day(2025, 3, 1))

	r, err := f.eng.Annual(context.Background(), 1, 0, core.NewDisplayPreferences("USD", core.ThemeLight))
	require.NoError(t, err)
	assert.Equal(t, 2025, r.Year)
	assert.Equal(t, []int{2025, 2024, 2023, 2022, 2021}, r.AvailableYears)
	assert.Len(t, r.Months, 12)
	assert.Equal(t, 50.0, r.Net.Value)
	require.Len(t, r.Savings.Values, 12)
	assert.Equal(t, []float64{100, 60, 50}, r.Savings.Values[:3])
	assert.Equal(t, 50.0, r.Savings.Values[11])
	require.Len(t, r.TopCategories, 2)
	assert.Equal(t, "Food", r.TopCategories[0].Name)
	assert.Equal(t, 25.0, r.TopCategories[1].Percentage)
	assert.Equal(t, []string{"Food", core.UncategorizedName}, r.Categories.Labels)
}

func TestStatementPeriodsAndPlaceholder(t *testing.T) {
	f := newFixture(t)
	food := f.category("Food", "#FFB74D")
	f.add(core.Expense, "12", &food, day(2025, 3, 2))
	f.add(core.Expense, "8", nil, day(2024, 6, 1))

	ctx := context.Background()
	all, err := f.eng.Statement(ctx, 1, "", core.PeriodAll)
	require.NoError(t, err)
	assert.Equal(t, "All Time", all.Window.Label)
	assert.Len(t, all.Transactions, 2)
	assert.Equal(t, core.NoCategory, all.CategoryName(all.Transactions[1]))
	assert.Equal(t, "Food", all.CategoryName(all.Transactions[0]))
	assert.Equal(t, "User 1", all.PreparedFor)

	month, err := f.eng.Statement(ctx, 1, "", core.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, core.PeriodMonth, month.Period)
	assert.Equal(t, "March 2025", month.Window.Label)
	assert.Len(t, month.Transactions, 1)
	assert.Equal(t, "12", month.Summary.Expense.String())
}
