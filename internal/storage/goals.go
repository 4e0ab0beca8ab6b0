package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"montra/internal/core"
	"montra/internal/ledger"
)

type goalRepo struct{ r *SQLiteRepository }

const goalColumns = `id, user_id, name, target_cents, current_cents, icon, color,
	deadline, is_completed, created_at, updated_at`

func (q goalRepo) scan(s scanner) (core.SavingsGoal, error) {
	var (
		g                core.SavingsGoal
		target, current  int64
		deadline         sql.NullString
		completed        int
		created, updated string
	)
	if err := s.Scan(&g.ID, &g.UserID, &g.Name, &target, &current, &g.Icon, &g.Color,
		&deadline, &completed, &created, &updated); err != nil {
		return core.SavingsGoal{}, err
	}
	g.TargetAmount = core.FromCents(target)
	g.CurrentAmount = core.FromCents(current)
	g.IsCompleted = completed == 1
	var err error
	if deadline.Valid && deadline.String != "" {
		d, err := q.r.parseTime(deadline.String)
		if err != nil {
			return core.SavingsGoal{}, err
		}
		g.Deadline = &d
	}
	if g.CreatedAt, err = q.r.parseTime(created); err != nil {
		return core.SavingsGoal{}, err
	}
	if g.UpdatedAt, err = q.r.parseTime(updated); err != nil {
		return core.SavingsGoal{}, err
	}
	return g, nil
}

func nullDay(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtDay(*t), Valid: true}
}

func (q goalRepo) List(ctx context.Context, f ledger.GoalFilter) ([]core.SavingsGoal, error) {
	rows, err := q.r.db.QueryContext(ctx, `SELECT `+goalColumns+` FROM savings_goals
		WHERE user_id = ? ORDER BY is_completed ASC, created_at DESC, id DESC`, f.UserID)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	out := make([]core.SavingsGoal, 0)
	for rows.Next() {
		g, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (q goalRepo) get(ctx context.Context, db rowQuerier, userID, id int64) (core.SavingsGoal, error) {
	g, err := q.scan(db.QueryRowContext(ctx, `SELECT `+goalColumns+`
		FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.SavingsGoal{}, mapErr(err)
	}
	return g, nil
}

func (q goalRepo) Get(ctx context.Context, userID, id int64) (core.SavingsGoal, error) {
	return q.get(ctx, q.r.db, userID, id)
}

func (q goalRepo) Insert(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	now := q.r.fmtStamp(q.r.nowStamp())
	res, err := q.r.db.ExecContext(ctx, `INSERT INTO savings_goals
		(user_id, name, target_cents, current_cents, icon, color, deadline, is_completed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.UserID, g.Name, core.ToCents(g.TargetAmount), core.ToCents(g.CurrentAmount),
		g.Icon, g.Color, nullDay(g.Deadline), boolInt(g.IsCompleted), now, now)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("create savings goal: %w", err)
	}
	return q.Get(ctx, g.UserID, id)
}

// Modify is the atomic path used by add-money: the read and the write share
// one transaction on the single connection.
func (q goalRepo) Modify(ctx context.Context, userID, id int64, fn func(*core.SavingsGoal) error) (core.SavingsGoal, error) {
	err := q.r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := q.get(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		next := cur
		if err := fn(&next); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE savings_goals
			SET name = ?, target_cents = ?, current_cents = ?, icon = ?, color = ?,
				deadline = ?, is_completed = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			next.Name, core.ToCents(next.TargetAmount), core.ToCents(next.CurrentAmount),
			next.Icon, next.Color, nullDay(next.Deadline), boolInt(next.IsCompleted),
			q.r.fmtStamp(q.r.nowStamp()), id, userID)
		if err != nil {
			return fmt.Errorf("update savings goal: %w", mapErr(err))
		}
		return nil
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	return q.Get(ctx, userID, id)
}

func (q goalRepo) Remove(ctx context.Context, userID, id int64, check func(core.SavingsGoal) error) error {
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
		if _, err := tx.ExecContext(ctx, `DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID); err != nil {
			return fmt.Errorf("delete savings goal: %w", err)
		}
		return nil
	})
}
