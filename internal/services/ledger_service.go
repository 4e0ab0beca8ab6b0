// Package services orchestrates ledger mutations: validation and ownership
// through the generic CRUD service, then report cache invalidation and event
// publishing.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"montra/internal/amqp"
	"montra/internal/core"
	"montra/internal/ledger"
	applog "montra/internal/log"
)

// EventPublisher delivers ledger events. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// ReportInvalidator drops cached report payloads of a user.
type ReportInvalidator interface {
	Invalidate(userID int64)
}

type Options struct {
	// Events may be nil; publishing is then skipped.
	Events   EventPublisher
	Reports  ReportInvalidator
	Logger   *applog.Logger
	Location *time.Location
	Now      func() time.Time
}

// LedgerService is the single entry point for ledger mutations. The store is
// written first; events are published afterwards and their failure never
// fails the request.
type LedgerService struct {
	store   ledger.Store
	events  EventPublisher
	reports ReportInvalidator
	logger  *applog.Logger
	loc     *time.Location
	now     func() time.Time

	Transactions *CRUD[core.Transaction, ledger.TransactionFilter]
	Categories   *CRUD[core.Category, ledger.CategoryFilter]
	Budgets      *CRUD[core.Budget, ledger.BudgetFilter]
	Goals        *CRUD[core.SavingsGoal, ledger.GoalFilter]
}

func NewLedgerService(store ledger.Store, opts Options) *LedgerService {
	if opts.Logger == nil {
		opts.Logger = applog.NewDefault()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &LedgerService{
		store:   store,
		events:  opts.Events,
		reports: opts.Reports,
		logger:  opts.Logger.WithComponent(applog.ComponentLedger),
		loc:     opts.Location,
		now:     opts.Now,
	}
	localNow := func() time.Time { return s.now().In(s.loc) }

	s.Transactions = NewCRUD(store.Transactions(), transactionPolicy(store, localNow), opts.Logger)
	s.Categories = NewCRUD(store.Categories(), categoryPolicy(), opts.Logger)
	s.Budgets = NewCRUD(store.Budgets(), budgetPolicy(store), opts.Logger)
	s.Goals = NewCRUD(store.Goals(), goalPolicy(), opts.Logger)

	s.Transactions.Observe(s.transactionChanged)
	s.Categories.Observe(func(ctx context.Context, c Change[core.Category]) { s.invalidate(c.UserID) })
	s.Budgets.Observe(s.budgetChanged)
	s.Goals.Observe(s.goalChanged)
	return s
}

// Store exposes the underlying ledger for read paths.
func (s *LedgerService) Store() ledger.Store { return s.store }

func (s *LedgerService) Location() *time.Location { return s.loc }

// Now returns the current time in the service location.
func (s *LedgerService) Now() time.Time { return s.now().In(s.loc) }

// AddMoney increments the saved amount of goal id as one atomic
// read-modify-write. A non-positive amount is rejected without writing.
func (s *LedgerService) AddMoney(ctx context.Context, userID, id int64, amount decimal.Decimal) (core.SavingsGoal, error) {
	g, err := s.Goals.Modify(ctx, userID, id, func(g *core.SavingsGoal) error {
		return g.AddMoney(amount)
	})
	if err != nil {
		return core.SavingsGoal{}, err
	}
	s.logger.InfoContext(ctx, "Money added to savings goal",
		applog.FieldOperation, applog.OpAddMoney,
		applog.FieldUserID, userID,
		applog.FieldEntityID, id,
		"amount", amount.StringFixed(2),
		"completed", g.IsCompleted)
	return g, nil
}

// Profile returns the stored preferences of userID or the defaults.
func (s *LedgerService) Profile(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := s.store.Profiles().Get(ctx, userID)
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

func (s *LedgerService) UpdateProfile(ctx context.Context, userID int64, p core.Profile) (core.Profile, error) {
	p.UserID = userID
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	p.Email = strings.TrimSpace(p.Email)
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	saved, err := s.store.Profiles().Save(ctx, p)
	if err != nil {
		return core.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	// cached payloads carry formatted amounts
	s.invalidate(userID)
	s.logger.InfoContext(ctx, "Profile updated",
		applog.FieldOperation, applog.OpUpdate,
		applog.FieldUserID, userID,
		"currency", saved.Currency,
		"theme", saved.Theme)
	return saved, nil
}

func (s *LedgerService) transactionChanged(ctx context.Context, c Change[core.Transaction]) {
	s.invalidate(c.UserID)

	tx, kind := c.After, amqp.TransactionUpdated
	switch c.Op {
	case OpCreate:
		kind = amqp.TransactionCreated
	case OpDelete:
		tx, kind = c.Before, amqp.TransactionDeleted
	}
	ev := amqp.NewLedgerEvent(kind, c.UserID, tx.ID).InMonth(tx.Date.In(s.loc))
	ev.TxType = string(tx.Type)
	s.publish(ctx, ev)
}

func (s *LedgerService) budgetChanged(ctx context.Context, c Change[core.Budget]) {
	s.invalidate(c.UserID)
	b := c.After
	if c.Op == OpDelete {
		b = c.Before
	}
	s.publish(ctx, amqp.NewLedgerEvent(amqp.BudgetChanged, c.UserID, b.ID).InMonth(b.Month))
}

func (s *LedgerService) goalChanged(ctx context.Context, c Change[core.SavingsGoal]) {
	if c.Op == OpDelete || !c.After.IsCompleted || c.Before.IsCompleted {
		return
	}
	s.logger.InfoContext(ctx, "Savings goal completed",
		applog.FieldUserID, c.UserID,
		applog.FieldEntityID, c.After.ID)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.GoalCompleted, c.UserID, c.After.ID))
}

func (s *LedgerService) invalidate(userID int64) {
	if s.reports != nil {
		s.reports.Invalidate(userID)
	}
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "Event publisher not available, skipping event",
			applog.FieldEventKind, ev.Kind)
		return
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldOperation, applog.OpPublish,
			applog.FieldEventKind, ev.Kind,
			applog.FieldEventID, ev.ID,
			applog.FieldErrorType, applog.ErrorTypeNetwork,
			applog.FieldError, err)
	}
}
