// Package worker holds the background jobs of montra-worker: budget alerts
// driven by ledger events and the scheduled monthly summary.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"montra/internal/amqp"
	"montra/internal/core"
	"montra/internal/ledger"
	applog "montra/internal/log"
	"montra/internal/notify"
	"montra/internal/report"
)

// AlertWorker e-mails users when a budget goes over. A budget is alerted once
// per crossing: it becomes eligible again only after it drops back under.
// The alerted set lives in memory, so a restart may repeat an alert.
type AlertWorker struct {
	engine *report.Engine
	store  ledger.Store
	sender notify.Sender
	logger *applog.Logger

	mu      sync.Mutex
	alerted map[string]bool
}

func NewAlertWorker(engine *report.Engine, store ledger.Store, sender notify.Sender, logger *applog.Logger) *AlertWorker {
	if logger == nil {
		logger = applog.NewDefault()
	}
	return &AlertWorker{
		engine:  engine,
		store:   store,
		sender:  sender,
		logger:  logger.WithComponent(applog.ComponentWorker),
		alerted: make(map[string]bool),
	}
}

func alertKey(userID, budgetID int64) string {
	return fmt.Sprintf("%d:%d", userID, budgetID)
}

// HandleEvent re-evaluates the budgets of the event's month. Only expense
// transactions and budget changes can push a budget over.
func (w *AlertWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch {
	case ev.Kind == amqp.BudgetChanged:
	case ev.Kind == amqp.TransactionCreated || ev.Kind == amqp.TransactionUpdated:
		if ev.TxType != string(core.Expense) {
			return nil
		}
	default:
		return nil
	}
	if ev.Year == 0 || ev.Month < 1 || ev.Month > 12 {
		w.logger.WarnContext(ctx, "Ledger event without month, skipping",
			applog.FieldEventID, ev.ID, applog.FieldEventKind, ev.Kind,
			applog.FieldYear, ev.Year, applog.FieldMonth, ev.Month)
		return nil
	}

	month := time.Date(ev.Year, time.Month(ev.Month), 1, 0, 0, 0, 0, w.engine.Location())
	statuses, err := w.engine.BudgetStatuses(ctx, ledger.BudgetFilter{UserID: ev.UserID, Month: month})
	if err != nil {
		return fmt.Errorf("evaluate budgets: %w", err)
	}
	fresh := w.newlyExceeded(ev.UserID, statuses)
	if len(fresh) == 0 {
		return nil
	}

	profile, err := w.store.Profiles().Get(ctx, ev.UserID)
	if err != nil {
		return fmt.Errorf("get profile: %w", err)
	}
	if profile.Email == "" {
		w.logger.DebugContext(ctx, "No e-mail address, budget alert not sent", applog.FieldUserID, ev.UserID)
		w.markAlerted(ev.UserID, fresh)
		return nil
	}
	cats, err := w.engine.CategoryIndex(ctx, ev.UserID)
	if err != nil {
		return err
	}
	prefs := profile.Preferences()
	views := make([]report.BudgetView, 0, len(fresh))
	for _, st := range fresh {
		views = append(views, report.NewBudgetView(st, cats, prefs))
	}

	if err := w.sender.Send(ctx, notify.BudgetAlert(profile, views)); err != nil {
		return fmt.Errorf("send budget alert: %w", err)
	}
	w.markAlerted(ev.UserID, fresh)
	w.logger.InfoContext(ctx, "Budget alert sent",
		applog.FieldOperation, applog.OpNotify,
		applog.FieldUserID, ev.UserID,
		applog.FieldYear, ev.Year,
		applog.FieldMonth, ev.Month,
		applog.FieldCount, len(fresh))
	return nil
}

// newlyExceeded returns the exceeded budgets not alerted yet and forgets the
// ones that are back under their amount.
func (w *AlertWorker) newlyExceeded(userID int64, statuses []core.BudgetStatus) []core.BudgetStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []core.BudgetStatus
	for _, st := range statuses {
		key := alertKey(userID, st.Budget.ID)
		switch {
		case !st.Exceeded:
			delete(w.alerted, key)
		case !w.alerted[key]:
			out = append(out, st)
		}
	}
	return out
}

func (w *AlertWorker) markAlerted(userID int64, statuses []core.BudgetStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, st := range statuses {
		w.alerted[alertKey(userID, st.Budget.ID)] = true
	}
}
