package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"montra/internal/core"
	"montra/internal/ledger"
)

// isClientError reports whether err is caused by the request rather than the
// store.
func isClientError(err error) bool {
	var ve *core.ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ledger.ErrNotFound) ||
		errors.Is(err, ledger.ErrConflict) ||
		errors.Is(err, ledger.ErrForbidden)
}

// visibleCategory checks that userID may reference category id.
func visibleCategory(ctx context.Context, store ledger.Store, userID, id int64) error {
	if _, err := store.Categories().Get(ctx, userID, id); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return core.FieldError("category", core.ErrInvalidCategory, "Select a valid choice. That choice is not one of the available choices.")
		}
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func transactionPolicy(store ledger.Store, now func() time.Time) Policy[core.Transaction] {
	return Policy[core.Transaction]{
		Entity: "transaction",
		ID:     func(tx core.Transaction) int64 { return tx.ID },
		Own: func(userID int64, tx core.Transaction) core.Transaction {
			tx.UserID = userID
			return tx
		},
		Prepare: func(ctx context.Context, userID int64, tx core.Transaction) (core.Transaction, error) {
			if tx.Date.IsZero() {
				tx.Date = now()
			}
			if tx.PaymentMethod == "" {
				tx.PaymentMethod = core.Cash
			}
			if err := tx.Validate(); err != nil {
				return tx, err
			}
			if tx.CategoryID != nil {
				if err := visibleCategory(ctx, store, userID, *tx.CategoryID); err != nil {
					return tx, err
				}
			}
			return tx, nil
		},
		Apply: func(cur *core.Transaction, next core.Transaction) {
			cur.Amount = next.Amount
			cur.Type = next.Type
			cur.CategoryID = next.CategoryID
			cur.Date = next.Date
			cur.PaymentMethod = next.PaymentMethod
			cur.Notes = next.Notes
		},
	}
}

func categoryPolicy() Policy[core.Category] {
	return Policy[core.Category]{
		Entity: "category",
		ID:     func(c core.Category) int64 { return c.ID },
		Own: func(userID int64, c core.Category) core.Category {
			owner := userID
			c.UserID = &owner
			c.IsSystem = false
			return c
		},
		Prepare: func(_ context.Context, _ int64, c core.Category) (core.Category, error) {
			c = c.WithDefaults()
			return c, c.Validate()
		},
		Apply: func(cur *core.Category, next core.Category) {
			cur.Name = next.Name
			cur.Icon = next.Icon
			cur.Color = next.Color
		},
		// System categories are shared and read-only.
		Writable: func(userID int64, c core.Category) error {
			if !c.OwnedBy(userID) {
				return ledger.ErrForbidden
			}
			return nil
		},
	}
}

func budgetPolicy(store ledger.Store) Policy[core.Budget] {
	return Policy[core.Budget]{
		Entity: "budget",
		ID:     func(b core.Budget) int64 { return b.ID },
		Own: func(userID int64, b core.Budget) core.Budget {
			b.UserID = userID
			return b
		},
		Prepare: func(ctx context.Context, userID int64, b core.Budget) (core.Budget, error) {
			b = b.Normalized()
			if err := b.Validate(); err != nil {
				return b, err
			}
			return b, visibleCategory(ctx, store, userID, b.CategoryID)
		},
		Apply: func(cur *core.Budget, next core.Budget) {
			cur.CategoryID = next.CategoryID
			cur.Amount = next.Amount
			cur.Month = next.Month
		},
	}
}

func goalPolicy() Policy[core.SavingsGoal] {
	return Policy[core.SavingsGoal]{
		Entity: "savings_goal",
		ID:     func(g core.SavingsGoal) int64 { return g.ID },
		Own: func(userID int64, g core.SavingsGoal) core.SavingsGoal {
			g.UserID = userID
			g.IsCompleted = false
			return g
		},
		Prepare: func(_ context.Context, _ int64, g core.SavingsGoal) (core.SavingsGoal, error) {
			g = g.WithDefaults()
			if err := g.Validate(); err != nil {
				return g, err
			}
			g.SyncCompletion()
			return g, nil
		},
		Apply: func(cur *core.SavingsGoal, next core.SavingsGoal) {
			cur.ApplyEdit(next)
		},
	}
}
