// Package memory is an in-process ledger used by tests and the memory backend.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/core"
	"montra/internal/ledger"
)

type Store struct {
	mu     sync.RWMutex
	now    func() time.Time
	nextID int64

	txns     map[int64]core.Transaction
	cats     map[int64]core.Category
	budgets  map[int64]core.Budget
	goals    map[int64]core.SavingsGoal
	profiles map[int64]core.Profile
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		txns:     make(map[int64]core.Transaction),
		cats:     make(map[int64]core.Category),
		budgets:  make(map[int64]core.Budget),
		goals:    make(map[int64]core.SavingsGoal),
		profiles: make(map[int64]core.Profile),
	}
}

// WithClock overrides the timestamp source used for CreatedAt/UpdatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Transactions() ledger.TransactionStore { return transactions{s} }
func (s *Store) Categories() ledger.CategoryStore      { return categories{s} }
func (s *Store) Budgets() ledger.BudgetStore           { return budgets{s} }
func (s *Store) Goals() ledger.GoalStore               { return goals{s} }
func (s *Store) Profiles() ledger.ProfileStore         { return profiles{s} }

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// ---- transactions ----

type transactions struct{ s *Store }

func (t transactions) match(f ledger.TransactionFilter, tx core.Transaction) bool {
	if tx.UserID != f.UserID {
		return false
	}
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !tx.Date.Before(f.To) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.CategoryID != nil && (tx.CategoryID == nil || *tx.CategoryID != *f.CategoryID) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hit := strings.Contains(strings.ToLower(tx.Notes), q)
		if !hit && tx.CategoryID != nil {
			if c, ok := t.s.cats[*tx.CategoryID]; ok {
				hit = strings.Contains(strings.ToLower(c.Name), q)
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

func (t transactions) selectSorted(f ledger.TransactionFilter) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range t.s.txns {
		if t.match(f, tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out
}

func (t transactions) List(_ context.Context, f ledger.TransactionFilter) ([]core.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	out := t.selectSorted(f)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []core.Transaction{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t transactions) Count(_ context.Context, f ledger.TransactionFilter) (int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	n := 0
	for _, tx := range t.s.txns {
		if t.match(f, tx) {
			n++
		}
	}
	return n, nil
}

func (t transactions) Sum(_ context.Context, f ledger.TransactionFilter) (decimal.Decimal, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	total := decimal.Zero
	for _, tx := range t.s.txns {
		if t.match(f, tx) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

func (t transactions) SumByCategory(_ context.Context, f ledger.TransactionFilter, limit int) ([]ledger.CategoryTotal, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	const uncategorized = int64(-1)
	groups := make(map[int64]*ledger.CategoryTotal)
	for _, tx := range t.s.txns {
		if !t.match(f, tx) {
			continue
		}
		key := uncategorized
		if tx.CategoryID != nil {
			key = *tx.CategoryID
		}
		g, ok := groups[key]
		if !ok {
			g = &ledger.CategoryTotal{Total: decimal.Zero}
			if tx.CategoryID != nil {
				id := *tx.CategoryID
				g.CategoryID = &id
				if c, ok := t.s.cats[id]; ok {
					g.Name, g.Icon, g.Color = c.Name, c.Icon, c.Color
				}
			}
			groups[key] = g
		}
		g.Total = g.Total.Add(tx.Amount)
	}

	out := make([]ledger.CategoryTotal, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t transactions) Get(_ context.Context, userID, id int64) (core.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	tx, ok := t.s.txns[id]
	if !ok || tx.UserID != userID {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return tx, nil
}

func (t transactions) Insert(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	now := t.s.now()
	tx.ID = t.s.id()
	tx.CreatedAt, tx.UpdatedAt = now, now
	t.s.txns[tx.ID] = tx
	return tx, nil
}

func (t transactions) Modify(_ context.Context, userID, id int64, fn func(*core.Transaction) error) (core.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	cur, ok := t.s.txns[id]
	if !ok || cur.UserID != userID {
		return core.Transaction{}, ledger.ErrNotFound
	}
	next := cur
	if err := fn(&next); err != nil {
		return core.Transaction{}, err
	}
	next.ID, next.UserID, next.CreatedAt = cur.ID, cur.UserID, cur.CreatedAt
	next.UpdatedAt = t.s.now()
	t.s.txns[id] = next
	return next, nil
}

func (t transactions) Remove(_ context.Context, userID, id int64, check func(core.Transaction) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	cur, ok := t.s.txns[id]
	if !ok || cur.UserID != userID {
		return ledger.ErrNotFound
	}
	if check != nil {
		if err := check(cur); err != nil {
			return err
		}
	}
	delete(t.s.txns, id)
	return nil
}

// ---- categories ----

type categories struct{ s *Store }

func (c categories) visible(userID int64, cat core.Category) bool {
	return cat.VisibleTo(userID)
}

func (c categories) List(_ context.Context, f ledger.CategoryFilter) ([]core.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]core.Category, 0)
	for _, cat := range c.s.cats {
		if c.visible(f.UserID, cat) {
			out = append(out, cat)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (c categories) Get(_ context.Context, userID, id int64) (core.Category, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	cat, ok := c.s.cats[id]
	if !ok || !c.visible(userID, cat) {
		return core.Category{}, ledger.ErrNotFound
	}
	return cat, nil
}

func (c categories) Insert(_ context.Context, cat core.Category) (core.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cat.ID = c.s.id()
	cat.CreatedAt = c.s.now()
	c.s.cats[cat.ID] = cat
	return cat, nil
}

func (c categories) UpsertSystem(_ context.Context, cat core.Category) (core.Category, bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	for id, existing := range c.s.cats {
		if existing.IsSystem && existing.Name == cat.Name {
			existing.Icon, existing.Color = cat.Icon, cat.Color
			c.s.cats[id] = existing
			return existing, false, nil
		}
	}
	cat.ID = c.s.id()
	cat.IsSystem = true
	cat.UserID = nil
	cat.CreatedAt = c.s.now()
	c.s.cats[cat.ID] = cat
	return cat, true, nil
}

func (c categories) Modify(_ context.Context, userID, id int64, fn func(*core.Category) error) (core.Category, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cur, ok := c.s.cats[id]
	if !ok || !c.visible(userID, cur) {
		return core.Category{}, ledger.ErrNotFound
	}
	next := cur
	if err := fn(&next); err != nil {
		return core.Category{}, err
	}
	next.ID, next.UserID, next.IsSystem, next.CreatedAt = cur.ID, cur.UserID, cur.IsSystem, cur.CreatedAt
	c.s.cats[id] = next
	return next, nil
}

// Remove deletes the category, clears it from transactions and drops the
// budgets that referenced it.
func (c categories) Remove(_ context.Context, userID, id int64, check func(core.Category) error) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	cur, ok := c.s.cats[id]
	if !ok || !c.visible(userID, cur) {
		return ledger.ErrNotFound
	}
	if check != nil {
		if err := check(cur); err != nil {
			return err
		}
	}
	delete(c.s.cats, id)
	for tid, tx := range c.s.txns {
		if tx.CategoryID != nil && *tx.CategoryID == id {
			tx.CategoryID = nil
			c.s.txns[tid] = tx
		}
	}
	for bid, b := range c.s.budgets {
		if b.CategoryID == id {
			delete(c.s.budgets, bid)
		}
	}
	return nil
}

// ---- budgets ----

type budgets struct{ s *Store }

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func (b budgets) List(_ context.Context, f ledger.BudgetFilter) ([]core.Budget, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	out := make([]core.Budget, 0)
	for _, bd := range b.s.budgets {
		if bd.UserID != f.UserID {
			continue
		}
		if !f.Month.IsZero() && !sameMonth(bd.Month, f.Month) {
			continue
		}
		if f.CategoryID != nil && bd.CategoryID != *f.CategoryID {
			continue
		}
		out = append(out, bd)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Month.Equal(out[j].Month) {
			return out[i].Month.After(out[j].Month)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (b budgets) Get(_ context.Context, userID, id int64) (core.Budget, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	bd, ok := b.s.budgets[id]
	if !ok || bd.UserID != userID {
		return core.Budget{}, ledger.ErrNotFound
	}
	return bd, nil
}

func (b budgets) conflicts(bd core.Budget) bool {
	for _, other := range b.s.budgets {
		if other.ID != bd.ID && other.UserID == bd.UserID && other.CategoryID == bd.CategoryID && sameMonth(other.Month, bd.Month) {
			return true
		}
	}
	return false
}

func (b budgets) Insert(_ context.Context, bd core.Budget) (core.Budget, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if _, ok := b.s.cats[bd.CategoryID]; !ok {
		return core.Budget{}, ledger.ErrNotFound
	}
	if b.conflicts(bd) {
		return core.Budget{}, ledger.ErrConflict
	}
	bd.ID = b.s.id()
	bd.CreatedAt = b.s.now()
	b.s.budgets[bd.ID] = bd
	return bd, nil
}

func (b budgets) Modify(_ context.Context, userID, id int64, fn func(*core.Budget) error) (core.Budget, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	cur, ok := b.s.budgets[id]
	if !ok || cur.UserID != userID {
		return core.Budget{}, ledger.ErrNotFound
	}
	next := cur
	if err := fn(&next); err != nil {
		return core.Budget{}, err
	}
	next.ID, next.UserID, next.CreatedAt = cur.ID, cur.UserID, cur.CreatedAt
	if b.conflicts(next) {
		return core.Budget{}, ledger.ErrConflict
	}
	b.s.budgets[id] = next
	return next, nil
}

func (b budgets) Remove(_ context.Context, userID, id int64, check func(core.Budget) error) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	cur, ok := b.s.budgets[id]
	if !ok || cur.UserID != userID {
		return ledger.ErrNotFound
	}
	if check != nil {
		if err := check(cur); err != nil {
			return err
		}
	}
	delete(b.s.budgets, id)
	return nil
}

// ---- savings goals ----

type goals struct{ s *Store }

func (g goals) List(_ context.Context, f ledger.GoalFilter) ([]core.SavingsGoal, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	out := make([]core.SavingsGoal, 0)
	for _, goal := range g.s.goals {
		if goal.UserID == f.UserID {
			out = append(out, goal)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsCompleted != b.IsCompleted {
			return !a.IsCompleted
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return out, nil
}

func (g goals) Get(_ context.Context, userID, id int64) (core.SavingsGoal, error) {
	g.s.mu.RLock()
	defer g.s.mu.RUnlock()
	goal, ok := g.s.goals[id]
	if !ok || goal.UserID != userID {
		return core.SavingsGoal{}, ledger.ErrNotFound
	}
	return goal, nil
}

func (g goals) Insert(_ context.Context, goal core.SavingsGoal) (core.SavingsGoal, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	now := g.s.now()
	goal.ID = g.s.id()
	goal.CreatedAt, goal.UpdatedAt = now, now
	g.s.goals[goal.ID] = goal
	return goal, nil
}

func (g goals) Modify(_ context.Context, userID, id int64, fn func(*core.SavingsGoal) error) (core.SavingsGoal, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	cur, ok := g.s.goals[id]
	if !ok || cur.UserID != userID {
		return core.SavingsGoal{}, ledger.ErrNotFound
	}
	next := cur
	if err := fn(&next); err != nil {
		return core.SavingsGoal{}, err
	}
	next.ID, next.UserID, next.CreatedAt = cur.ID, cur.UserID, cur.CreatedAt
	next.UpdatedAt = g.s.now()
	g.s.goals[id] = next
	return next, nil
}

func (g goals) Remove(_ context.Context, userID, id int64, check func(core.SavingsGoal) error) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	cur, ok := g.s.goals[id]
	if !ok || cur.UserID != userID {
		return ledger.ErrNotFound
	}
	if check != nil {
		if err := check(cur); err != nil {
			return err
		}
	}
	delete(g.s.goals, id)
	return nil
}

// ---- profiles ----

type profiles struct{ s *Store }

func (p profiles) Get(_ context.Context, userID int64) (core.Profile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if prof, ok := p.s.profiles[userID]; ok {
		return prof, nil
	}
	return core.DefaultProfile(userID), nil
}

func (p profiles) Save(_ context.Context, prof core.Profile) (core.Profile, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	p.s.profiles[prof.UserID] = prof
	return prof, nil
}

func (p profiles) List(_ context.Context) ([]core.Profile, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	out := make([]core.Profile, 0, len(p.s.profiles))
	for _, prof := range p.s.profiles {
		out = append(out, prof)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}
