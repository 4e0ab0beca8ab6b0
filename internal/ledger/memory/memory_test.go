package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/core"
	"montra/internal/ledger"
)

func addTx(t *testing.T, s *Store, user int64, typ core.TransactionType, amount string, cat *int64, when time.Time, notes string) core.Transaction {
	t.Helper()
	tx, err := s.Transactions().Insert(context.Background(), core.Transaction{
		UserID:        user,
		Amount:        decimal.RequireFromString(amount),
		Type:          typ,
		CategoryID:    cat,
		Date:          when,
		PaymentMethod: core.Cash,
		Notes:         notes,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	return tx
}

func TestTransactionsFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	food, _, _ := s.Categories().UpsertSystem(ctx, core.Category{Name: "Food & Dining", Icon: "restaurant", Color: "#FFB74D"})

	jan := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	feb := time.Date(2025, 2, 3, 8, 0, 0, 0, time.UTC)
	addTx(t, s, 1, core.Expense, "10.00", &food.ID, jan, "lunch")
	addTx(t, s, 1, core.Income, "100.00", nil, feb, "salary")
	addTx(t, s, 1, core.Expense, "5.50", nil, feb.Add(time.Hour), "coffee")
	addTx(t, s, 2, core.Expense, "99.00", nil, feb, "someone else")

	all, err := s.Transactions().List(ctx, ledger.TransactionFilter{UserID: 1})
	if err != nil || len(all) != 3 {
		t.Fatalf("list: %v %d", err, len(all))
	}
	if all[0].Notes != "coffee" || all[2].Notes != "lunch" {
		t.Fatalf("expected date-descending order, got %q ... %q", all[0].Notes, all[2].Notes)
	}

	w := core.MonthWindow(feb)
	sum, _ := s.Transactions().Sum(ctx, ledger.TransactionFilter{UserID: 1, Type: core.Expense}.InWindow(w))
	if !sum.Equal(decimal.RequireFromString("5.50")) {
		t.Fatalf("feb expense sum = %s", sum)
	}

	hits, _ := s.Transactions().List(ctx, ledger.TransactionFilter{UserID: 1, Search: "food"})
	if len(hits) != 1 || hits[0].Notes != "lunch" {
		t.Fatalf("search by category name failed: %+v", hits)
	}

	page, _ := s.Transactions().List(ctx, ledger.TransactionFilter{UserID: 1, Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].Notes != "salary" {
		t.Fatalf("pagination failed: %+v", page)
	}
}

func TestSumByCategoryOrdersByTotal(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _, _ := s.Categories().UpsertSystem(ctx, core.Category{Name: "A", Color: "#111111"})
	b, _, _ := s.Categories().UpsertSystem(ctx, core.Category{Name: "B", Color: "#222222"})
	when := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	addTx(t, s, 1, core.Expense, "50", &a.ID, when, "")
	addTx(t, s, 1, core.Expense, "100", &b.ID, when, "")
	addTx(t, s, 1, core.Expense, "25", nil, when, "")

	rows, err := s.Transactions().SumByCategory(ctx, ledger.TransactionFilter{UserID: 1, Type: core.Expense}, 0)
	if err != nil || len(rows) != 3 {
		t.Fatalf("rows=%v err=%v", rows, err)
	}
	if rows[0].Name != "B" || rows[1].Name != "A" || rows[2].CategoryID != nil {
		t.Fatalf("unexpected order: %+v", rows)
	}
}

func TestCategoryRemoveClearsTransactionsAndDropsBudgets(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := int64(1)
	cat, _ := s.Categories().Insert(ctx, core.Category{Name: "Hobby", Color: "#123456", UserID: &owner})
	tx := addTx(t, s, 1, core.Expense, "12", &cat.ID, time.Now(), "")
	if _, err := s.Budgets().Insert(ctx, core.Budget{UserID: 1, CategoryID: cat.ID, Amount: decimal.NewFromInt(50), Month: core.MonthStart(time.Now())}); err != nil {
		t.Fatalf("budget insert: %v", err)
	}

	if err := s.Categories().Remove(ctx, 1, cat.ID, nil); err != nil {
		t.Fatalf("remove: %v", err)
	}
	got, _ := s.Transactions().Get(ctx, 1, tx.ID)
	if got.CategoryID != nil {
		t.Fatal("transaction category should be cleared")
	}
	bs, _ := s.Budgets().List(ctx, ledger.BudgetFilter{UserID: 1})
	if len(bs) != 0 {
		t.Fatalf("budgets should cascade, got %d", len(bs))
	}
}

func TestBudgetUniquePerMonth(t *testing.T) {
	ctx := context.Background()
	s := New()
	cat, _, _ := s.Categories().UpsertSystem(ctx, core.Category{Name: "Food", Color: "#FFB74D"})
	month := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	b := core.Budget{UserID: 1, CategoryID: cat.ID, Amount: decimal.NewFromInt(10), Month: month}
	if _, err := s.Budgets().Insert(ctx, b); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := s.Budgets().Insert(ctx, b); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	b.UserID = 2
	if _, err := s.Budgets().Insert(ctx, b); err != nil {
		t.Fatalf("other user should not conflict: %v", err)
	}
}

func TestCategoryVisibility(t *testing.T) {
	ctx := context.Background()
	s := New()
	owner := int64(1)
	_, _, _ = s.Categories().UpsertSystem(ctx, core.Category{Name: "Salary", Color: "#81C784"})
	mine, _ := s.Categories().Insert(ctx, core.Category{Name: "Mine", Color: "#000000", UserID: &owner})

	list1, _ := s.Categories().List(ctx, ledger.CategoryFilter{UserID: 1})
	list2, _ := s.Categories().List(ctx, ledger.CategoryFilter{UserID: 2})
	if len(list1) != 2 || len(list2) != 1 {
		t.Fatalf("visibility wrong: user1=%d user2=%d", len(list1), len(list2))
	}
	if _, err := s.Categories().Get(ctx, 2, mine.ID); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertSystemRefreshesStyle(t *testing.T) {
	ctx := context.Background()
	s := New()
	first, created, _ := s.Categories().UpsertSystem(ctx, core.Category{Name: "Coffee", Icon: "coffee", Color: "#A1887F"})
	if !created {
		t.Fatal("expected creation")
	}
	second, created, _ := s.Categories().UpsertSystem(ctx, core.Category{Name: "Coffee", Icon: "local_cafe", Color: "#000000"})
	if created || second.ID != first.ID || second.Icon != "local_cafe" {
		t.Fatalf("expected update in place, got %+v created=%v", second, created)
	}
}

func TestModifyIsAtomicAndAbortsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	g, _ := s.Goals().Insert(ctx, core.SavingsGoal{UserID: 1, Name: "Trip", TargetAmount: decimal.NewFromInt(100)})
	boom := errors.New("boom")
	if _, err := s.Goals().Modify(ctx, 1, g.ID, func(cur *core.SavingsGoal) error {
		cur.CurrentAmount = decimal.NewFromInt(50)
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.Goals().Get(ctx, 1, g.ID)
	if !got.CurrentAmount.IsZero() {
		t.Fatal("failed modify must not persist")
	}
}

func TestProfilesDefault(t *testing.T) {
	s := New()
	p, err := s.Profiles().Get(context.Background(), 9)
	if err != nil || p.Currency != core.DefaultCurrency || p.Theme != core.ThemeLight {
		t.Fatalf("unexpected default profile %+v err=%v", p, err)
	}
}
