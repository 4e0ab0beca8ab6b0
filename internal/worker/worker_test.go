package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"montra/internal/amqp"
	"montra/internal/core"
	"montra/internal/ledger/memory"
	"montra/internal/notify"
	"montra/internal/report"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (s *fakeSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSender) messages() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Message(nil), s.sent...)
}

var march = time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

type env struct {
	store  *memory.Store
	engine *report.Engine
	sender *fakeSender
	food   core.Category
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	food, _, err := store.Categories().UpsertSystem(context.Background(), core.Category{Name: "Food", Icon: "restaurant", Color: "#ef4444"})
	require.NoError(t, err)
	return &env{
		store:  store,
		engine: report.NewEngine(store, time.UTC).WithClock(func() time.Time { return march.AddDate(0, 1, 0) }),
		sender: &fakeSender{},
		food:   food,
	}
}

func (e *env) profile(t *testing.T, userID int64, email string) {
	t.Helper()
	p := core.DefaultProfile(userID)
	p.Email = email
	p.DisplayName = "Ada"
	_, err := e.store.Profiles().Save(context.Background(), p)
	require.NoError(t, err)
}

func (e *env) budget(t *testing.T, userID int64, amount string) core.Budget {
	t.Helper()
	b, err := e.store.Budgets().Insert(context.Background(), core.Budget{
		UserID: userID, CategoryID: e.food.ID, Amount: decimal.RequireFromString(amount), Month: march,
	})
	require.NoError(t, err)
	return b
}

func (e *env) expense(t *testing.T, userID int64, amount string, day int) core.Transaction {
	t.Helper()
	cat := e.food.ID
	tx, err := e.store.Transactions().Insert(context.Background(), core.Transaction{
		UserID:        userID,
		Amount:        decimal.RequireFromString(amount),
		Type:          core.Expense,
		CategoryID:    &cat,
		Date:          time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC),
		PaymentMethod: core.Card,
	})
	require.NoError(t, err)
	return tx
}

func expenseEvent(tx core.Transaction) *amqp.LedgerEvent {
	ev := amqp.NewLedgerEvent(amqp.TransactionCreated, tx.UserID, tx.ID).InMonth(tx.Date)
	ev.TxType = string(tx.Type)
	return ev
}

func TestAlertWorkerAlertsOncePerCrossing(t *testing.T) {
	e := newEnv(t)
	e.profile(t, 1, "ada@example.com")
	e.budget(t, 1, "100")
	w := NewAlertWorker(e.engine, e.store, e.sender, nil)
	ctx := context.Background()

	under := e.expense(t, 1, "60", 3)
	require.NoError(t, w.HandleEvent(ctx, expenseEvent(under)))
	assert.Empty(t, e.sender.messages())

	over := e.expense(t, 1, "50", 4)
	require.NoError(t, w.HandleEvent(ctx, expenseEvent(over)))
	msgs := e.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ada@example.com", msgs[0].To)
	assert.Equal(t, "Budget exceeded: Food", msgs[0].Subject)
	assert.Contains(t, msgs[0].Text, "spent $110.00 of $100.00")

	more := e.expense(t, 1, "5", 5)
	require.NoError(t, w.HandleEvent(ctx, expenseEvent(more)))
	assert.Len(t, e.sender.messages(), 1, "still exceeded, no repeat")

	// Dropping back under re-arms the alert.
	require.NoError(t, e.store.Transactions().Remove(ctx, 1, over.ID, nil))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.BudgetChanged, 1, 0).InMonth(march)))
	again := e.expense(t, 1, "80", 6)
	require.NoError(t, w.HandleEvent(ctx, expenseEvent(again)))
	assert.Len(t, e.sender.messages(), 2)
}

func TestAlertWorkerIgnoresIrrelevantEvents(t *testing.T) {
	e := newEnv(t)
	e.profile(t, 1, "ada@example.com")
	e.budget(t, 1, "10")
	e.expense(t, 1, "50", 3)
	w := NewAlertWorker(e.engine, e.store, e.sender, nil)
	ctx := context.Background()

	income := amqp.NewLedgerEvent(amqp.TransactionCreated, 1, 99).InMonth(march)
	income.TxType = string(core.Income)
	require.NoError(t, w.HandleEvent(ctx, income))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.TransactionDeleted, 1, 99).InMonth(march)))
	require.NoError(t, w.HandleEvent(ctx, amqp.NewLedgerEvent(amqp.GoalCompleted, 1, 7)))
	noMonth := amqp.NewLedgerEvent(amqp.BudgetChanged, 1, 1)
	require.NoError(t, w.HandleEvent(ctx, noMonth))

	assert.Empty(t, e.sender.messages())
}

func TestAlertWorkerRetriesAfterSendFailure(t *testing.T) {
	e := newEnv(t)
	e.profile(t, 1, "ada@example.com")
	e.budget(t, 1, "10")
	tx := e.expense(t, 1, "50", 3)
	w := NewAlertWorker(e.engine, e.store, e.sender, nil)
	ctx := context.Background()

	e.sender.err = errors.New("smtp down")
	require.Error(t, w.HandleEvent(ctx, expenseEvent(tx)))

	e.sender.err = nil
	require.NoError(t, w.HandleEvent(ctx, expenseEvent(tx)))
	assert.Len(t, e.sender.messages(), 1)
}

func TestAlertWorkerSkipsUsersWithoutEmail(t *testing.T) {
	e := newEnv(t)
	e.budget(t, 1, "10")
	tx := e.expense(t, 1, "50", 3)
	w := NewAlertWorker(e.engine, e.store, e.sender, nil)

	require.NoError(t, w.HandleEvent(context.Background(), expenseEvent(tx)))
	assert.Empty(t, e.sender.messages())
}

func TestMonthlySummaryJob(t *testing.T) {
	e := newEnv(t)
	e.profile(t, 1, "ada@example.com")
	e.profile(t, 2, "idle@example.com")
	e.profile(t, 3, "")
	e.expense(t, 1, "42.50", 10)
	e.expense(t, 3, "9", 10)

	job := NewMonthlySummaryJob(e.engine, e.store, e.sender, nil)
	res, err := job.Run(context.Background(), time.Date(2025, time.April, 1, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, SummaryResult{Sent: 1, Skipped: 2}, res)

	msgs := e.sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "ada@example.com", msgs[0].To)
	assert.Equal(t, "Your Montra summary for March 2025", msgs[0].Subject)
	require.Len(t, msgs[0].Attachments, 1)
	assert.Equal(t, "montra_2025-03.csv", msgs[0].Attachments[0].Filename)
	assert.Contains(t, string(msgs[0].Attachments[0].Data), "42.50")
}

func TestMonthlySummaryJobCountsFailures(t *testing.T) {
	e := newEnv(t)
	e.profile(t, 1, "ada@example.com")
	e.expense(t, 1, "42.50", 10)
	e.sender.err = errors.New("smtp down")

	job := NewMonthlySummaryJob(e.engine, e.store, e.sender, nil)
	res, err := job.Run(context.Background(), time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.Equal(t, int64(1), res.Failed)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	s := NewScheduler(time.UTC, nil)
	err := s.Add(context.Background(), "summary", "not a spec", func(context.Context, time.Time) error { return nil })
	assert.Error(t, err)
	assert.NoError(t, s.Add(context.Background(), "summary", DefaultSummarySchedule, SummaryJob(&MonthlySummaryJob{})))
}
