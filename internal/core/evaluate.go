package core

import (
	"github.com/shopspring/decimal"
)

// BudgetStatus is the derived state of a budget for its month.
type BudgetStatus struct {
	Budget     Budget
	Spent      decimal.Decimal
	Remaining  decimal.Decimal
	Percentage float64
	Exceeded   bool
}

// EvaluateBudget derives the status of b given the expenses recorded for its
// category and month. Percentage is capped at 100; exceeding requires spent
// to be strictly greater than the budget amount.
func EvaluateBudget(b Budget, spent decimal.Decimal) BudgetStatus {
	remaining := b.Amount.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return BudgetStatus{
		Budget:     b,
		Spent:      spent,
		Remaining:  remaining,
		Percentage: ClampedRatio(spent, b.Amount),
		Exceeded:   spent.GreaterThan(b.Amount),
	}
}

// Percentage returns the share of the target already saved, capped at 100.
func (g SavingsGoal) Percentage() float64 {
	return ClampedRatio(g.CurrentAmount, g.TargetAmount)
}

// Remaining returns how much is still missing, never below zero.
func (g SavingsGoal) Remaining() decimal.Decimal {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// AddMoney increments the saved amount. Once the target is reached the goal
// stays completed, even if the target is raised later.
func (g *SavingsGoal) AddMoney(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &ValidationError{
			Fields: map[string]string{"amount": "Amount must be positive."},
			cause:  ErrNonPositiveAmount,
		}
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.SyncCompletion()
	return nil
}

// ApplyEdit copies editable fields from next while keeping the completion flag
// one-way.
func (g *SavingsGoal) ApplyEdit(next SavingsGoal) {
	g.Name = next.Name
	g.TargetAmount = next.TargetAmount
	g.CurrentAmount = next.CurrentAmount
	g.Icon = next.Icon
	g.Color = next.Color
	g.Deadline = next.Deadline
	g.SyncCompletion()
}

// SyncCompletion sets the completion flag when the target has been reached.
// It never clears the flag.
func (g *SavingsGoal) SyncCompletion() {
	if g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount) {
		g.IsCompleted = true
	}
}
