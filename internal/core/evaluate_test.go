package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEvaluateBudget_ExceededIsStrict(t *testing.T) {
	b := Budget{Amount: dec("100.00")}

	atLimit := EvaluateBudget(b, dec("100.00"))
	if atLimit.Exceeded {
		t.Fatal("spent == amount must not be exceeded")
	}
	if atLimit.Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", atLimit.Percentage)
	}

	over := EvaluateBudget(b, dec("100.01"))
	if !over.Exceeded {
		t.Fatal("spent > amount must be exceeded")
	}
	if !over.Remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0", over.Remaining)
	}
}

func TestEvaluateBudget_PercentageBounds(t *testing.T) {
	cases := []struct {
		amount, spent string
		want          float64
	}{
		{"100", "0", 0},
		{"100", "45.55", 45.6},
		{"100", "1000", 100},
		{"0", "50", 0},
	}
	for _, tc := range cases {
		got := EvaluateBudget(Budget{Amount: dec(tc.amount)}, dec(tc.spent)).Percentage
		if got != tc.want {
			t.Errorf("amount=%s spent=%s: percentage=%v want %v", tc.amount, tc.spent, got, tc.want)
		}
		if got < 0 || got > 100 {
			t.Errorf("percentage out of range: %v", got)
		}
	}
}

func TestSavingsGoal_AddMoneyCompletes(t *testing.T) {
	g := SavingsGoal{TargetAmount: dec("1000"), CurrentAmount: dec("900")}
	if err := g.AddMoney(dec("150")); err != nil {
		t.Fatalf("AddMoney: %v", err)
	}
	if !g.CurrentAmount.Equal(dec("1050")) {
		t.Fatalf("current = %s, want 1050", g.CurrentAmount)
	}
	if !g.IsCompleted {
		t.Fatal("goal should be completed")
	}
	if !g.Remaining().IsZero() {
		t.Fatalf("remaining = %s, want 0", g.Remaining())
	}
	if g.Percentage() != 100 {
		t.Fatalf("percentage = %v, want 100", g.Percentage())
	}
}

func TestSavingsGoal_AddMoneyRejectsNonPositive(t *testing.T) {
	g := SavingsGoal{TargetAmount: dec("100"), CurrentAmount: dec("10")}
	for _, amt := range []string{"0", "-5"} {
		err := g.AddMoney(dec(amt))
		if !errors.Is(err, ErrNonPositiveAmount) {
			t.Fatalf("AddMoney(%s) err = %v", amt, err)
		}
	}
	if !g.CurrentAmount.Equal(dec("10")) {
		t.Fatalf("current mutated to %s", g.CurrentAmount)
	}
}

func TestSavingsGoal_CompletionIsOneWay(t *testing.T) {
	g := SavingsGoal{TargetAmount: dec("100"), CurrentAmount: dec("100")}
	g.SyncCompletion()
	if !g.IsCompleted {
		t.Fatal("expected completed")
	}
	next := g
	next.TargetAmount = dec("500")
	g.ApplyEdit(next)
	if !g.IsCompleted {
		t.Fatal("raising the target must not reset completion")
	}
}

func TestSavingsGoal_ZeroTarget(t *testing.T) {
	g := SavingsGoal{TargetAmount: decimal.Zero, CurrentAmount: dec("20")}
	if g.Percentage() != 0 {
		t.Fatalf("percentage = %v, want 0", g.Percentage())
	}
}
