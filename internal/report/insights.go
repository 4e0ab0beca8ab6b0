package report

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type InsightKind string

const (
	InsightSpentMore     InsightKind = "spent_more"
	InsightSpentLess     InsightKind = "spent_less"
	InsightSavingsRate   InsightKind = "savings_rate"
	InsightOverspending  InsightKind = "overspending"
	InsightStartTracking InsightKind = "start_tracking"
)

// Insight is one advisory message. Percent is set for the kinds that carry a
// figure.
type Insight struct {
	Kind    InsightKind `json:"kind"`
	Percent int64       `json:"percent,omitempty"`
	Message string      `json:"message"`
}

// spentLessThreshold hides small decreases (between -5% and 0%).
var spentLessThreshold = decimal.NewFromInt(-5)

var hundred = decimal.NewFromInt(100)

// GenerateInsights compares the current month with the previous one.
//
// Rules are evaluated in a fixed order: month-over-month expense change,
// savings rate, overspending warning. The start-tracking message is only
// emitted when none of them fired.
func GenerateInsights(income, expense, previousExpense decimal.Decimal) []Insight {
	out := make([]Insight, 0, 2)

	if previousExpense.IsPositive() && expense.IsPositive() {
		change := expense.Sub(previousExpense).Div(previousExpense).Mul(hundred)
		switch {
		case change.IsPositive():
			pct := change.Abs().RoundBank(0).IntPart()
			out = append(out, Insight{
				Kind:    InsightSpentMore,
				Percent: pct,
				Message: fmt.Sprintf("You spent %d%% more than last month.", pct),
			})
		case change.LessThan(spentLessThreshold):
			pct := change.Abs().RoundBank(0).IntPart()
			out = append(out, Insight{
				Kind:    InsightSpentLess,
				Percent: pct,
				Message: fmt.Sprintf("Great! You spent %d%% less than last month.", pct),
			})
		}
	}

	if income.GreaterThan(expense) {
		rate := income.Sub(expense).Div(income).Mul(hundred).RoundBank(0).IntPart()
		out = append(out, Insight{
			Kind:    InsightSavingsRate,
			Percent: rate,
			Message: fmt.Sprintf("Your savings rate this month is %d%%.", rate),
		})
	}

	if expense.GreaterThan(income) && income.IsPositive() {
		out = append(out, Insight{
			Kind:    InsightOverspending,
			Message: "You're spending more than you earn this month!",
		})
	}

	if len(out) == 0 {
		out = append(out, Insight{
			Kind:    InsightStartTracking,
			Message: "Start tracking your expenses to get personalized insights!",
		})
	}
	return out
}
