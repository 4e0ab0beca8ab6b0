package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"montra/internal/core"
	"montra/internal/ledger"
	applog "montra/internal/log"
)

type transactionRepo struct{ r *SQLiteRepository }

const transactionColumns = `t.id, t.user_id, t.amount_cents, t.type, t.category_id, t.occurred_at,
	t.payment_method, t.notes, t.created_at, t.updated_at`

// where renders the filter as a WHERE clause over transactions t joined
// with categories c.
func (q transactionRepo) where(f ledger.TransactionFilter) (string, []any) {
	conds := []string{"t.user_id = ?"}
	args := []any{f.UserID}
	if !f.From.IsZero() {
		conds = append(conds, "t.occurred_at >= ?")
		args = append(args, q.r.fmtTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "t.occurred_at < ?")
		args = append(args, q.r.fmtTime(f.To))
	}
	if f.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.CategoryID != nil {
		conds = append(conds, "t.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		p := likePattern(s)
		conds = append(conds, `(t.notes LIKE ? ESCAPE '\' OR c.name LIKE ? ESCAPE '\')`)
		args = append(args, p, p)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (q transactionRepo) scan(s scanner) (core.Transaction, error) {
	var (
		tx                         core.Transaction
		cents                      int64
		typ, method                string
		catID                      sql.NullInt64
		occurred, created, updated string
	)
	if err := s.Scan(&tx.ID, &tx.UserID, &cents, &typ, &catID, &occurred, &method, &tx.Notes, &created, &updated); err != nil {
		return core.Transaction{}, err
	}
	tx.Amount = core.FromCents(cents)
	tx.Type = core.TransactionType(typ)
	tx.PaymentMethod = core.PaymentMethod(method)
	tx.CategoryID = intPtr(catID)
	var err error
	if tx.Date, err = q.r.parseTime(occurred); err != nil {
		return core.Transaction{}, err
	}
	if tx.CreatedAt, err = q.r.parseTime(created); err != nil {
		return core.Transaction{}, err
	}
	if tx.UpdatedAt, err = q.r.parseTime(updated); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func (q transactionRepo) List(ctx context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	where, args := q.where(f)
	query := `SELECT ` + transactionColumns + `
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id` + where + `
		ORDER BY t.occurred_at DESC, t.created_at DESC, t.id DESC`
	if f.Limit > 0 || f.Offset > 0 {
		limit := f.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, f.Offset)
	}

	rows, err := q.r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (q transactionRepo) Count(ctx context.Context, f ledger.TransactionFilter) (int, error) {
	where, args := q.where(f)
	var n int
	err := q.r.db.QueryRowContext(ctx, `SELECT COUNT(*)
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return n, nil
}

func (q transactionRepo) Sum(ctx context.Context, f ledger.TransactionFilter) (decimal.Decimal, error) {
	where, args := q.where(f)
	var cents int64
	err := q.r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(t.amount_cents), 0)
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`+where, args...).Scan(&cents)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum transactions: %w", err)
	}
	return core.FromCents(cents), nil
}

func (q transactionRepo) SumByCategory(ctx context.Context, f ledger.TransactionFilter, limit int) ([]ledger.CategoryTotal, error) {
	where, args := q.where(f)
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit)
	rows, err := q.r.db.QueryContext(ctx, `SELECT t.category_id,
			COALESCE(c.name, ''), COALESCE(c.icon, ''), COALESCE(c.color, ''),
			SUM(t.amount_cents) AS total
		FROM transactions t LEFT JOIN categories c ON c.id = t.category_id`+where+`
		GROUP BY t.category_id
		ORDER BY total DESC, COALESCE(c.name, '') ASC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	defer rows.Close()

	out := make([]ledger.CategoryTotal, 0)
	for rows.Next() {
		var (
			ct    ledger.CategoryTotal
			catID sql.NullInt64
			cents int64
		)
		if err := rows.Scan(&catID, &ct.Name, &ct.Icon, &ct.Color, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ct.CategoryID = intPtr(catID)
		ct.Total = core.FromCents(cents)
		out = append(out, ct)
	}
	return out, rows.Err()
}

func (q transactionRepo) get(ctx context.Context, db rowQuerier, userID, id int64) (core.Transaction, error) {
	row := db.QueryRowContext(ctx, `SELECT `+transactionColumns+`
		FROM transactions t WHERE t.id = ? AND t.user_id = ?`, id, userID)
	tx, err := q.scan(row)
	if err != nil {
		return core.Transaction{}, mapErr(err)
	}
	return tx, nil
}

func (q transactionRepo) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return q.get(ctx, q.r.db, userID, id)
}

func (q transactionRepo) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	now := q.r.nowStamp()
	res, err := q.r.db.ExecContext(ctx, `INSERT INTO transactions
		(user_id, amount_cents, type, category_id, occurred_at, payment_method, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, core.ToCents(tx.Amount), string(tx.Type), nullInt(tx.CategoryID),
		q.r.fmtTime(tx.Date), string(tx.PaymentMethod), tx.Notes,
		q.r.fmtStamp(now), q.r.fmtStamp(now))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite", applog.FieldComponent, applog.ComponentStorage,
		"id", id,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount_cents", core.ToCents(tx.Amount))

	return q.Get(ctx, tx.UserID, id)
}

func (q transactionRepo) Modify(ctx context.Context, userID, id int64, fn func(*core.Transaction) error) (core.Transaction, error) {
	err := q.r.withTx(ctx, func(sqlTx *sql.Tx) error {
		cur, err := q.get(ctx, sqlTx, userID, id)
		if err != nil {
			return err
		}
		next := cur
		if err := fn(&next); err != nil {
			return err
		}
		next.ID, next.UserID, next.CreatedAt = cur.ID, cur.UserID, cur.CreatedAt
		next.UpdatedAt = q.r.nowStamp()
		_, err = sqlTx.ExecContext(ctx, `UPDATE transactions
			SET amount_cents = ?, type = ?, category_id = ?, occurred_at = ?,
				payment_method = ?, notes = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			core.ToCents(next.Amount), string(next.Type), nullInt(next.CategoryID),
			q.r.fmtTime(next.Date), string(next.PaymentMethod), next.Notes,
			q.r.fmtStamp(next.UpdatedAt), id, userID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", mapErr(err))
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return q.Get(ctx, userID, id)
}

func (q transactionRepo) Remove(ctx context.Context, userID, id int64, check func(core.Transaction) error) error {
	return q.r.withTx(ctx, func(sqlTx *sql.Tx) error {
		cur, err := q.get(ctx, sqlTx, userID, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(cur); err != nil {
				return err
			}
		}
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		return nil
	})
}
