package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"montra/internal/core"
)

type profileRepo struct{ r *SQLiteRepository }

func (q profileRepo) Get(ctx context.Context, userID int64) (core.Profile, error) {
	p := core.Profile{UserID: userID}
	var theme string
	err := q.r.db.QueryRowContext(ctx, `SELECT display_name, email, currency, theme
		FROM user_profiles WHERE user_id = ?`, userID).Scan(&p.DisplayName, &p.Email, &p.Currency, &theme)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultProfile(userID), nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	p.Theme = core.Theme(theme)
	return p, nil
}

func (q profileRepo) Save(ctx context.Context, p core.Profile) (core.Profile, error) {
	_, err := q.r.db.ExecContext(ctx, `INSERT INTO user_profiles
		(user_id, display_name, email, currency, theme, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			email = excluded.email,
			currency = excluded.currency,
			theme = excluded.theme,
			updated_at = excluded.updated_at`,
		p.UserID, p.DisplayName, p.Email, p.Currency, string(p.Theme), q.r.fmtStamp(q.r.nowStamp()))
	if err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

func (q profileRepo) List(ctx context.Context) ([]core.Profile, error) {
	rows, err := q.r.db.QueryContext(ctx, `SELECT user_id, display_name, email, currency, theme
		FROM user_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	out := make([]core.Profile, 0)
	for rows.Next() {
		var (
			p     core.Profile
			theme string
		)
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.Email, &p.Currency, &theme); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.Theme = core.Theme(theme)
		out = append(out, p)
	}
	return out, rows.Err()
}
