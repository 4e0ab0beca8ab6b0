// Package ledger defines the storage ports for transactions, categories,
// budgets, savings goals and profiles.
//
// Every query is explicitly scoped by user: callers pass the user id in the
// filter or as an argument, stores never infer it.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/core"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrConflict  = errors.New("record already exists")
	ErrForbidden = errors.New("record is read-only for this user")
)

// Table is the CRUD surface shared by every entity store.
//
// Modify runs fn against the current record and persists the result as a
// single atomic read-modify-write. When fn returns an error nothing is
// written. Remove calls check with the current record before deleting.
type Table[T any, F any] interface {
	List(ctx context.Context, filter F) ([]T, error)
	Get(ctx context.Context, userID, id int64) (T, error)
	Insert(ctx context.Context, v T) (T, error)
	Modify(ctx context.Context, userID, id int64, fn func(*T) error) (T, error)
	Remove(ctx context.Context, userID, id int64, check func(T) error) error
}

// TransactionFilter selects transactions of one user. Zero values are
// ignored; From is inclusive and To exclusive.
type TransactionFilter struct {
	UserID     int64
	From       time.Time
	To         time.Time
	Type       core.TransactionType
	CategoryID *int64
	Search     string
	Limit      int
	Offset     int
}

// InWindow returns a copy of f restricted to w.
func (f TransactionFilter) InWindow(w core.Window) TransactionFilter {
	f.From, f.To = w.From, w.To
	return f
}

// OfType returns a copy of f restricted to t.
func (f TransactionFilter) OfType(t core.TransactionType) TransactionFilter {
	f.Type = t
	return f
}

// CategoryFilter selects the categories visible to a user: every system
// category plus the user's own.
type CategoryFilter struct {
	UserID int64
}

type BudgetFilter struct {
	UserID     int64
	Month      time.Time
	CategoryID *int64
}

type GoalFilter struct {
	UserID int64
}

// CategoryTotal is one row of a group-by-category sum. CategoryID is nil for
// transactions without a category.
type CategoryTotal struct {
	CategoryID *int64
	Name       string
	Icon       string
	Color      string
	Total      decimal.Decimal
}

type TransactionStore interface {
	Table[core.Transaction, TransactionFilter]
	Count(ctx context.Context, filter TransactionFilter) (int, error)
	Sum(ctx context.Context, filter TransactionFilter) (decimal.Decimal, error)
	// SumByCategory groups matching transactions by category ordered by
	// total descending. limit <= 0 returns every group.
	SumByCategory(ctx context.Context, filter TransactionFilter, limit int) ([]CategoryTotal, error)
}

type CategoryStore interface {
	Table[core.Category, CategoryFilter]
	// UpsertSystem creates a system category or refreshes icon and color of
	// the existing one with the same name.
	UpsertSystem(ctx context.Context, c core.Category) (core.Category, bool, error)
}

type BudgetStore interface {
	Table[core.Budget, BudgetFilter]
}

type GoalStore interface {
	Table[core.SavingsGoal, GoalFilter]
}

type ProfileStore interface {
	// Get returns the stored profile or core.DefaultProfile when none exists.
	Get(ctx context.Context, userID int64) (core.Profile, error)
	Save(ctx context.Context, p core.Profile) (core.Profile, error)
	List(ctx context.Context) ([]core.Profile, error)
}

// Store groups every port of the ledger.
type Store interface {
	Transactions() TransactionStore
	Categories() CategoryStore
	Budgets() BudgetStore
	Goals() GoalStore
	Profiles() ProfileStore
	Ping(ctx context.Context) error
	Close() error
}
