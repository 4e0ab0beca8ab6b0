package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"montra/internal/core"
	"montra/internal/ledger"
	applog "montra/internal/log"
)

type categoryRepo struct{ r *SQLiteRepository }

const categoryColumns = `id, name, icon, color, is_system, user_id, created_at`

// visibleTo is the scoping predicate shared by every category read.
const visibleTo = `(is_system = 1 OR user_id = ?)`

func (q categoryRepo) scan(s scanner) (core.Category, error) {
	var (
		c       core.Category
		system  int
		owner   sql.NullInt64
		created string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Icon, &c.Color, &system, &owner, &created); err != nil {
		return core.Category{}, err
	}
	c.IsSystem = system == 1
	c.UserID = intPtr(owner)
	t, err := q.r.parseTime(created)
	if err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = t
	return c, nil
}

func (q categoryRepo) List(ctx context.Context, f ledger.CategoryFilter) ([]core.Category, error) {
	rows, err := q.r.db.QueryContext(ctx, `SELECT `+categoryColumns+`
		FROM categories WHERE `+visibleTo+` ORDER BY name, id`, f.UserID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		c, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q categoryRepo) get(ctx context.Context, db rowQuerier, userID, id int64) (core.Category, error) {
	c, err := q.scan(db.QueryRowContext(ctx, `SELECT `+categoryColumns+`
		FROM categories WHERE id = ? AND `+visibleTo, id, userID))
	if err != nil {
		return core.Category{}, mapErr(err)
	}
	return c, nil
}

func (q categoryRepo) Get(ctx context.Context, userID, id int64) (core.Category, error) {
	return q.get(ctx, q.r.db, userID, id)
}

func (q categoryRepo) Insert(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := q.r.db.ExecContext(ctx, `INSERT INTO categories
		(name, icon, color, is_system, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Icon, c.Color, boolInt(c.IsSystem), nullInt(c.UserID), q.r.fmtStamp(q.r.nowStamp()))
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", mapErr(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return q.byID(ctx, q.r.db, id)
}

func (q categoryRepo) byID(ctx context.Context, db rowQuerier, id int64) (core.Category, error) {
	c, err := q.scan(db.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if err != nil {
		return core.Category{}, mapErr(err)
	}
	return c, nil
}

func (q categoryRepo) UpsertSystem(ctx context.Context, c core.Category) (core.Category, bool, error) {
	var (
		out     core.Category
		created bool
	)
	err := q.r.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE is_system = 1 AND name = ?`, c.Name).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			res, err := tx.ExecContext(ctx, `INSERT INTO categories
				(name, icon, color, is_system, user_id, created_at) VALUES (?, ?, ?, 1, NULL, ?)`,
				c.Name, c.Icon, c.Color, q.r.fmtStamp(q.r.nowStamp()))
			if err != nil {
				return fmt.Errorf("create system category: %w", mapErr(err))
			}
			if id, err = res.LastInsertId(); err != nil {
				return err
			}
			created = true
		case err != nil:
			return fmt.Errorf("lookup system category: %w", err)
		default:
			if _, err := tx.ExecContext(ctx, `UPDATE categories SET icon = ?, color = ? WHERE id = ?`,
				c.Icon, c.Color, id); err != nil {
				return fmt.Errorf("update system category: %w", err)
			}
		}
		out, err = q.byID(ctx, tx, id)
		return err
	})
	if err != nil {
		return core.Category{}, false, err
	}
	if created {
		slog.InfoContext(ctx, "System category created", applog.FieldComponent, applog.ComponentStorage, "id", out.ID, "name", out.Name)
	}
	return out, created, nil
}

func (q categoryRepo) Modify(ctx context.Context, userID, id int64, fn func(*core.Category) error) (core.Category, error) {
	err := q.r.withTx(ctx, func(tx *sql.Tx) error {
		cur, err := q.get(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		next := cur
		if err := fn(&next); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE categories SET name = ?, icon = ?, color = ? WHERE id = ?`,
			next.Name, next.Icon, next.Color, id)
		if err != nil {
			return fmt.Errorf("update category: %w", mapErr(err))
		}
		return nil
	})
	if err != nil {
		return core.Category{}, err
	}
	return q.Get(ctx, userID, id)
}

// Remove deletes the category. Foreign keys clear it from transactions and
// drop the budgets that referenced it.
func (q categoryRepo) Remove(ctx context.Context, userID, id int64, check func(core.Category) error) error {
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
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}
