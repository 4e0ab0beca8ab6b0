package report

import (
	"context"
	"fmt"
	"time"

	"montra/internal/core"
	"montra/internal/ledger"
)

// calendarMonth keeps the year and month of t as written and places them in
// the engine's location.
func (e *Engine) calendarMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, e.loc)
}

// evaluate derives the state of b from the expenses of its category during
// the calendar month of b.Month.
func (e *Engine) evaluate(ctx context.Context, b core.Budget) (core.BudgetStatus, error) {
	cat := b.CategoryID
	f := ledger.TransactionFilter{UserID: b.UserID, Type: core.Expense, CategoryID: &cat}.
		InWindow(core.MonthWindow(e.calendarMonth(b.Month)))
	spent, err := e.store.Transactions().Sum(ctx, f)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("sum budget spending: %w", err)
	}
	return core.EvaluateBudget(b, spent), nil
}

// BudgetStatuses evaluates every budget matching f. Spent is recomputed from
// the ledger on each call.
func (e *Engine) BudgetStatuses(ctx context.Context, f ledger.BudgetFilter) ([]core.BudgetStatus, error) {
	budgets, err := e.store.Budgets().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		st, err := e.evaluate(ctx, b)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// BudgetWarnings returns the exceeded budgets of the month containing now.
func (e *Engine) BudgetWarnings(ctx context.Context, userID int64, now time.Time) ([]core.BudgetStatus, error) {
	all, err := e.BudgetStatuses(ctx, ledger.BudgetFilter{UserID: userID, Month: core.MonthStart(now.In(e.loc))})
	if err != nil {
		return nil, err
	}
	exceeded := make([]core.BudgetStatus, 0)
	for _, st := range all {
		if st.Exceeded {
			exceeded = append(exceeded, st)
		}
	}
	return exceeded, nil
}
