package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"montra/internal/core"
	"montra/internal/ledger"
)

type budgetRepo struct{ r *SQLiteRepository }

const budgetColumns = `id, user_id, category_id, amount_cents, month, created_at`

func (q budgetRepo) scan(s scanner) (core.Budget, error) {
	var (
		b              core.Budget
		cents          int64
		month, created string
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.CategoryID, &cents, &month, &created); err != nil {
		return core.Budget{}, err
	}
	b.Amount = core.FromCents(cents)
	var err error
	if b.Month, err = q.r.parseTime(month); err != nil {
		return core.Budget{}, err
	}
	if b.CreatedAt, err = q.r.parseTime(created); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (q budgetRepo) List(ctx context.Context, f ledger.BudgetFilter) ([]core.Budget, error) {
	conds := []string{"user_id = ?"}
	args := []any{f.UserID}
	if !f.Month.IsZero() {
		conds = append(conds, "month = ?")
		args = append(args, fmtDay(core.MonthStart(f.Month)))
	}
	if f.CategoryID != nil {
		conds = append(conds, "category_id = ?")
		args = append(args, *f.CategoryID)
	}
	rows, err := q.r.db.QueryContext(ctx, `SELECT `+budgetColumns+` FROM budgets
		WHERE `+strings.Join(conds, " AND ")+` ORDER BY month DESC, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	out := make([]core.Budget, 0)
	for rows.Next() {
		b, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q budgetRepo) get(ctx context.Context, db rowQuerier, userID, id int64) (core.Budget, error) {
	b, err := q.scan(db.QueryRowContext(ctx, `SELECT `+budgetColumns+`
		FROM budgets WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.Budget{}, mapErr(err)
	}
	return b, nil
}

func (q budgetRepo) Get(ctx context.Context, userID, id int64) (core.Budget, error) {
	return q.get(ctx, q.r.db, userID, id)
}

func (q budgetRepo) Insert(ctx context.Context, b core.Budget) (core.Budget, error) {
	res, err := q.r.db.ExecContext(ctx, `INSERT INTO budgets
		(user_id, category_id, amount_cents, month, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.CategoryID, core.ToCents(b.Amount), fmtDay(core.MonthStart(b.Month)),
		q.r.fmtStamp(q.r.nowStamp()))
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return q.Get(ctx, b.UserID, id)
}

func (q budgetRepo) Modify(ctx context.Context, userID, id int64, fn func(*core.Budget) error) (core.Budget, error) {
	err := q.r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := q.get(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		next := cur
		if err := fn(&next); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE budgets SET category_id = ?, amount_cents = ?, month = ?
			WHERE id = ? AND user_id = ?`,
			next.CategoryID, core.ToCents(next.Amount), fmtDay(core.MonthStart(next.Month)), id, userID)
		if err != nil {
			return fmt.Errorf("update budget: %w", mapErr(err))
		}
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return q.Get(ctx, userID, id)
}

func (q budgetRepo) Remove(ctx context.Context, userID, id int64, check func(core.Budget) error) error {
	return q.r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := q.get(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(cur); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		return nil
	})
}
