package report

import (
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/core"
)

// Money is an amount at the display boundary: the float value for charts and
// the string formatted with the user's currency.
type Money struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

func NewMoney(d decimal.Decimal, prefs core.DisplayPreferences) Money {
	return Money{Value: core.Float(d), Display: prefs.FormatMoney(d)}
}

type Display struct {
	CurrencyCode string     `json:"currency_code"`
	Symbol       string     `json:"symbol"`
	Theme        core.Theme `json:"theme"`
}

func NewDisplay(p core.DisplayPreferences) Display {
	return Display{CurrencyCode: p.CurrencyCode, Symbol: p.Symbol, Theme: p.Theme}
}

// ChartSeries feeds a single-series chart as parallel arrays. Colors is only
// populated for category breakdowns.
type ChartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Colors []string  `json:"colors,omitempty"`
}

// IncomeExpenseSeries feeds the grouped income/expense bar chart.
type IncomeExpenseSeries struct {
	Labels  []string  `json:"labels"`
	Income  []float64 `json:"income"`
	Expense []float64 `json:"expense"`
}

func CategorySeries(rows []CategoryShare) ChartSeries {
	s := ChartSeries{
		Labels: make([]string, 0, len(rows)),
		Values: make([]float64, 0, len(rows)),
		Colors: make([]string, 0, len(rows)),
	}
	for _, r := range rows {
		s.Labels = append(s.Labels, r.Name)
		s.Values = append(s.Values, core.Float(r.Total))
		s.Colors = append(s.Colors, r.Color)
	}
	return s
}

func MonthSeries(buckets []MonthBucket) IncomeExpenseSeries {
	s := IncomeExpenseSeries{
		Labels:  make([]string, 0, len(buckets)),
		Income:  make([]float64, 0, len(buckets)),
		Expense: make([]float64, 0, len(buckets)),
	}
	for _, b := range buckets {
		s.Labels = append(s.Labels, b.Label)
		s.Income = append(s.Income, core.Float(b.Income))
		s.Expense = append(s.Expense, core.Float(b.Expense))
	}
	return s
}

func DaySeries(buckets []DayBucket) ChartSeries {
	s := ChartSeries{
		Labels: make([]string, 0, len(buckets)),
		Values: make([]float64, 0, len(buckets)),
	}
	for _, b := range buckets {
		s.Labels = append(s.Labels, b.Label)
		s.Values = append(s.Values, core.Float(b.Expense))
	}
	return s
}

type TransactionView struct {
	ID            int64                `json:"id"`
	Amount        Money                `json:"amount"`
	Type          core.TransactionType `json:"type"`
	CategoryID    *int64               `json:"category_id"`
	Category      string               `json:"category"`
	CategoryIcon  string               `json:"category_icon,omitempty"`
	CategoryColor string               `json:"category_color,omitempty"`
	Date          time.Time            `json:"date"`
	PaymentMethod core.PaymentMethod   `json:"payment_method"`
	PaymentLabel  string               `json:"payment_label"`
	Notes         string               `json:"notes"`
}

// NewTransactionView resolves the category through cats. A missing category
// is rendered with the placeholder marker.
func NewTransactionView(tx core.Transaction, cats map[int64]core.Category, prefs core.DisplayPreferences) TransactionView {
	v := TransactionView{
		ID:            tx.ID,
		Amount:        NewMoney(tx.Amount, prefs),
		Type:          tx.Type,
		CategoryID:    tx.CategoryID,
		Category:      core.NoCategory,
		Date:          tx.Date,
		PaymentMethod: tx.PaymentMethod,
		PaymentLabel:  tx.PaymentMethod.Label(),
		Notes:         tx.Notes,
	}
	if tx.CategoryID != nil {
		if c, ok := cats[*tx.CategoryID]; ok {
			v.Category, v.CategoryIcon, v.CategoryColor = c.Name, c.Icon, c.Color
		}
	}
	return v
}

func TransactionViews(txs []core.Transaction, cats map[int64]core.Category, prefs core.DisplayPreferences) []TransactionView {
	out := make([]TransactionView, 0, len(txs))
	for _, tx := range txs {
		out = append(out, NewTransactionView(tx, cats, prefs))
	}
	return out
}

type CategoryView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Color    string `json:"color"`
	IsSystem bool   `json:"is_system"`
	Editable bool   `json:"editable"`
}

func NewCategoryView(c core.Category, userID int64) CategoryView {
	return CategoryView{
		ID:       c.ID,
		Name:     c.Name,
		Icon:     c.Icon,
		Color:    c.Color,
		IsSystem: c.IsSystem,
		Editable: c.OwnedBy(userID),
	}
}

type BudgetView struct {
	ID            int64   `json:"id"`
	CategoryID    int64   `json:"category_id"`
	Category      string  `json:"category"`
	CategoryIcon  string  `json:"category_icon,omitempty"`
	CategoryColor string  `json:"category_color,omitempty"`
	Month         string  `json:"month"`
	Amount        Money   `json:"amount"`
	Spent         Money   `json:"spent"`
	Remaining     Money   `json:"remaining"`
	Percentage    float64 `json:"percentage"`
	Exceeded      bool    `json:"exceeded"`
}

func NewBudgetView(st core.BudgetStatus, cats map[int64]core.Category, prefs core.DisplayPreferences) BudgetView {
	b := st.Budget
	v := BudgetView{
		ID:         b.ID,
		CategoryID: b.CategoryID,
		Category:   core.NoCategory,
		Month:      core.MonthKey(b.Month),
		Amount:     NewMoney(b.Amount, prefs),
		Spent:      NewMoney(st.Spent, prefs),
		Remaining:  NewMoney(st.Remaining, prefs),
		Percentage: st.Percentage,
		Exceeded:   st.Exceeded,
	}
	if c, ok := cats[b.CategoryID]; ok {
		v.Category, v.CategoryIcon, v.CategoryColor = c.Name, c.Icon, c.Color
	}
	return v
}

type GoalView struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Target      Money   `json:"target_amount"`
	Current     Money   `json:"current_amount"`
	Remaining   Money   `json:"remaining"`
	Percentage  float64 `json:"percentage"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color"`
	Deadline    string  `json:"deadline,omitempty"`
	IsCompleted bool    `json:"is_completed"`
}

func NewGoalView(g core.SavingsGoal, prefs core.DisplayPreferences) GoalView {
	v := GoalView{
		ID:          g.ID,
		Name:        g.Name,
		Target:      NewMoney(g.TargetAmount, prefs),
		Current:     NewMoney(g.CurrentAmount, prefs),
		Remaining:   NewMoney(g.Remaining(), prefs),
		Percentage:  g.Percentage(),
		Icon:        g.Icon,
		Color:       g.Color,
		IsCompleted: g.IsCompleted,
	}
	if g.Deadline != nil {
		v.Deadline = g.Deadline.Format("2006-01-02")
	}
	return v
}

type CategoryShareView struct {
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Color      string  `json:"color"`
	Total      Money   `json:"total"`
	Percentage float64 `json:"pct"`
}

func NewCategoryShareViews(rows []CategoryShare, prefs core.DisplayPreferences) []CategoryShareView {
	out := make([]CategoryShareView, 0, len(rows))
	for _, r := range rows {
		out = append(out, CategoryShareView{
			Name:       r.Name,
			Icon:       r.Icon,
			Color:      r.Color,
			Total:      NewMoney(r.Total, prefs),
			Percentage: r.Percentage,
		})
	}
	return out
}
