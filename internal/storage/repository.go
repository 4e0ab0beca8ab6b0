// Package storage implements the ledger ports on SQLite.
//
// Amounts are stored as integer cents. Date-times are stored as local text
// in the repository's location ("2006-01-02 15:04:05") so that range filters
// compare lexicographically.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"montra/internal/ledger"
	applog "montra/internal/log"
)

const (
	dateTimeLayout = "2006-01-02 15:04:05"
	stampLayout    = "2006-01-02 15:04:05.000000"
	dayLayout      = "2006-01-02"
)

type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating when needed) the database at dbPath,
// applies pending migrations and interprets stored date-times in loc.
func NewSQLiteRepository(dbPath string, loc *time.Location) (*SQLiteRepository, error) {
	if loc == nil {
		loc = time.Local
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Modify relies on writers being serialised on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite ledger opened", applog.FieldComponent, applog.ComponentStorage, "path", dbPath, "location", loc.String())

	return &SQLiteRepository{db: db, loc: loc, now: time.Now}, nil
}

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// WithClock overrides the timestamp source used for created/updated columns.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) Transactions() ledger.TransactionStore { return transactionRepo{r} }
func (r *SQLiteRepository) Categories() ledger.CategoryStore      { return categoryRepo{r} }
func (r *SQLiteRepository) Budgets() ledger.BudgetStore           { return budgetRepo{r} }
func (r *SQLiteRepository) Goals() ledger.GoalStore               { return goalRepo{r} }
func (r *SQLiteRepository) Profiles() ledger.ProfileStore         { return profileRepo{r} }

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Instants are stored as UTC text so that ordering and range filters stay
// unambiguous across DST transitions of loc.
func (r *SQLiteRepository) fmtTime(t time.Time) string {
	return t.UTC().Format(dateTimeLayout)
}

func (r *SQLiteRepository) fmtStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

// fmtDay keeps the calendar date of t as written, without converting zones.
func fmtDay(t time.Time) string {
	return t.Format(dayLayout)
}

// parseTime reads a UTC instant back in loc. Calendar days are taken as
// midnight in loc.
func (r *SQLiteRepository) parseTime(s string) (time.Time, error) {
	for _, layout := range []string{stampLayout, dateTimeLayout} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.In(r.loc), nil
		}
	}
	if t, err := time.ParseInLocation(dayLayout, s, r.loc); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parse stored time %q", s)
}

// nowStamp truncates to microseconds so values read back compare equal.
func (r *SQLiteRepository) nowStamp() time.Time {
	return r.now().In(r.loc).Truncate(time.Microsecond)
}

// withTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapErr translates driver errors into ledger sentinels.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ledger.ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	case strings.Contains(err.Error(), "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ledger.ErrNotFound, err)
	}
	return err
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// likePattern escapes LIKE wildcards for a contains match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
