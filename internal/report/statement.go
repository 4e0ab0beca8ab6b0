package report

import (
	"context"
	"fmt"
	"time"

	"montra/internal/core"
	"montra/internal/ledger"
)

const statementChartSlices = 8

// Statement is the data behind every export format: the resolved window,
// its totals and the transactions in date-descending order.
type Statement struct {
	UserID       int64
	Period       string
	Window       core.Window
	Summary      Summary
	Breakdown    []CategoryShare
	Transactions []core.Transaction
	Categories   map[int64]core.Category
	Display      core.DisplayPreferences
	PreparedFor  string
	GeneratedAt  time.Time
}

// CategoryName returns the category label of tx or the placeholder marker.
func (s Statement) CategoryName(tx core.Transaction) string {
	if tx.CategoryID == nil {
		return core.NoCategory
	}
	if c, ok := s.Categories[*tx.CategoryID]; ok {
		return c.Name
	}
	return core.NoCategory
}

// Statement resolves period (falling back to def when empty) relative to now
// and loads everything an export needs.
func (e *Engine) Statement(ctx context.Context, userID int64, period, def string) (Statement, error) {
	now := e.Now()
	period = core.NormalizePeriod(period, def)
	w := core.PeriodWindow(period, now)
	return e.StatementFor(ctx, userID, period, w)
}

// StatementFor loads the statement of an explicit window.
func (e *Engine) StatementFor(ctx context.Context, userID int64, period string, w core.Window) (Statement, error) {
	sum, err := e.Summary(ctx, userID, w)
	if err != nil {
		return Statement{}, err
	}
	breakdown, err := e.CategoryBreakdown(ctx, userID, w, statementChartSlices)
	if err != nil {
		return Statement{}, err
	}
	txs, err := e.store.Transactions().List(ctx, ledger.TransactionFilter{UserID: userID}.InWindow(w))
	if err != nil {
		return Statement{}, fmt.Errorf("list transactions: %w", err)
	}
	cats, err := e.CategoryIndex(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	profile, err := e.store.Profiles().Get(ctx, userID)
	if err != nil {
		return Statement{}, fmt.Errorf("get profile: %w", err)
	}
	name := profile.DisplayName
	if name == "" {
		name = fmt.Sprintf("User %d", userID)
	}
	return Statement{
		UserID:       userID,
		Period:       period,
		Window:       w,
		Summary:      sum,
		Breakdown:    breakdown,
		Transactions: txs,
		Categories:   cats,
		Display:      profile.Preferences(),
		PreparedFor:  name,
		GeneratedAt:  e.Now(),
	}, nil
}
