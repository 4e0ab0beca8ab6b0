// Package report aggregates the ledger into summaries, chart series,
// insights and budget state, and assembles the payloads served to clients.
//
// Every sum is computed in decimal. Conversion to float64 only happens in the
// view types of views.go.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/core"
	"montra/internal/ledger"
)

// Engine answers aggregation queries for one user at a time. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	store ledger.Store
	loc   *time.Location
	now   func() time.Time
}

func NewEngine(store ledger.Store, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{store: store, loc: loc, now: time.Now}
}

// WithClock overrides the source of "now" used for relative windows.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Now returns the current time in the engine's location.
func (e *Engine) Now() time.Time { return e.now().In(e.loc) }

func (e *Engine) Location() *time.Location { return e.loc }

// Summary holds the totals of one window.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

func (e *Engine) Summary(ctx context.Context, userID int64, w core.Window) (Summary, error) {
	f := ledger.TransactionFilter{UserID: userID}.InWindow(w)
	income, err := e.store.Transactions().Sum(ctx, f.OfType(core.Income))
	if err != nil {
		return Summary{}, fmt.Errorf("sum income: %w", err)
	}
	expense, err := e.store.Transactions().Sum(ctx, f.OfType(core.Expense))
	if err != nil {
		return Summary{}, fmt.Errorf("sum expense: %w", err)
	}
	return Summary{Income: income, Expense: expense, Net: income.Sub(expense)}, nil
}

// CategoryShare is one row of an expense breakdown. Percentage is relative to
// the largest total of the result set, not to the grand total.
type CategoryShare struct {
	CategoryID *int64
	Name       string
	Icon       string
	Color      string
	Total      decimal.Decimal
	Percentage float64
}

// CategoryBreakdown returns the expense totals per category within w, largest
// first. limit <= 0 returns every category.
func (e *Engine) CategoryBreakdown(ctx context.Context, userID int64, w core.Window, limit int) ([]CategoryShare, error) {
	f := ledger.TransactionFilter{UserID: userID, Type: core.Expense}.InWindow(w)
	rows, err := e.store.Transactions().SumByCategory(ctx, f, limit)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	return shares(rows), nil
}

func shares(rows []ledger.CategoryTotal) []CategoryShare {
	out := make([]CategoryShare, 0, len(rows))
	if len(rows) == 0 {
		return out
	}
	top := rows[0].Total
	for _, r := range rows[1:] {
		if r.Total.GreaterThan(top) {
			top = r.Total
		}
	}
	for _, r := range rows {
		s := CategoryShare{
			CategoryID: r.CategoryID,
			Name:       r.Name,
			Icon:       r.Icon,
			Color:      r.Color,
			Total:      r.Total,
			Percentage: core.Ratio(r.Total, top),
		}
		if s.Name == "" {
			s.Name = core.UncategorizedName
		}
		if s.Icon == "" {
			s.Icon = core.DefaultCategoryIcon
		}
		if s.Color == "" {
			s.Color = core.DefaultCategoryColor
		}
		out = append(out, s)
	}
	return out
}

// MonthBucket is one calendar month of a series.
type MonthBucket struct {
	Month   time.Time
	Label   string
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// DayBucket is one calendar day of the spending series.
type DayBucket struct {
	Day     time.Time
	Label   string
	Expense decimal.Decimal
}

// MonthlySeries returns twelve buckets, January to December of year. Empty
// months are zero.
func (e *Engine) MonthlySeries(ctx context.Context, userID int64, year int) ([]MonthBucket, error) {
	first := time.Date(year, time.January, 1, 0, 0, 0, 0, e.loc)
	return e.monthBuckets(ctx, userID, first, 12)
}

// TrailingMonths returns n calendar months ending with the month of now.
func (e *Engine) TrailingMonths(ctx context.Context, userID int64, now time.Time, n int) ([]MonthBucket, error) {
	current := core.MonthStart(now.In(e.loc))
	return e.monthBuckets(ctx, userID, core.AddMonths(current, -(n-1)), n)
}

func (e *Engine) monthBuckets(ctx context.Context, userID int64, first time.Time, n int) ([]MonthBucket, error) {
	buckets := make([]MonthBucket, n)
	for i := range buckets {
		m := core.AddMonths(first, i)
		buckets[i] = MonthBucket{Month: m, Label: m.Format("Jan"), Income: decimal.Zero, Expense: decimal.Zero, Net: decimal.Zero}
	}
	if n == 0 {
		return buckets, nil
	}

	w := core.Window{From: first, To: core.AddMonths(first, n)}
	txs, err := e.store.Transactions().List(ctx, ledger.TransactionFilter{UserID: userID}.InWindow(w))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	fy, fm, _ := first.Date()
	for _, tx := range txs {
		y, m, _ := tx.Date.In(e.loc).Date()
		i := (y-fy)*12 + int(m-fm)
		if i < 0 || i >= n {
			continue
		}
		switch tx.Type {
		case core.Income:
			buckets[i].Income = buckets[i].Income.Add(tx.Amount)
		case core.Expense:
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}
	for i := range buckets {
		buckets[i].Net = buckets[i].Income.Sub(buckets[i].Expense)
	}
	return buckets, nil
}

// TrailingDays returns the expense of n calendar days ending with today.
func (e *Engine) TrailingDays(ctx context.Context, userID int64, now time.Time, n int) ([]DayBucket, error) {
	today := core.DayStart(now.In(e.loc))
	first := today.AddDate(0, 0, -(n - 1))
	buckets := make([]DayBucket, n)
	index := make(map[string]int, n)
	for i := range buckets {
		d := first.AddDate(0, 0, i)
		buckets[i] = DayBucket{Day: d, Label: d.Format("02"), Expense: decimal.Zero}
		index[d.Format("2006-01-02")] = i
	}
	if n == 0 {
		return buckets, nil
	}

	f := ledger.TransactionFilter{UserID: userID, Type: core.Expense, From: first, To: today.AddDate(0, 0, 1)}
	txs, err := e.store.Transactions().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for _, tx := range txs {
		if i, ok := index[tx.Date.In(e.loc).Format("2006-01-02")]; ok {
			buckets[i].Expense = buckets[i].Expense.Add(tx.Amount)
		}
	}
	return buckets, nil
}

// CategoryIndex maps the ids of the categories visible to userID.
func (e *Engine) CategoryIndex(ctx context.Context, userID int64) (map[int64]core.Category, error) {
	cats, err := e.store.Categories().List(ctx, ledger.CategoryFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	idx := make(map[int64]core.Category, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx, nil
}

// Preferences loads the display preferences of userID.
func (e *Engine) Preferences(ctx context.Context, userID int64) (core.DisplayPreferences, error) {
	p, err := e.store.Profiles().Get(ctx, userID)
	if err != nil {
		return core.DisplayPreferences{}, fmt.Errorf("get profile: %w", err)
	}
	return p.Preferences(), nil
}
