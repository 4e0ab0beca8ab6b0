package worker

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"montra/internal/core"
	"montra/internal/export"
	"montra/internal/ledger"
	applog "montra/internal/log"
	"montra/internal/notify"
	"montra/internal/report"
)

const defaultSummaryConcurrency = 4

// MonthlySummaryJob mails every user with an e-mail address the statement of
// the previous calendar month.
type MonthlySummaryJob struct {
	engine      *report.Engine
	store       ledger.Store
	sender      notify.Sender
	logger      *applog.Logger
	concurrency int
}

func NewMonthlySummaryJob(engine *report.Engine, store ledger.Store, sender notify.Sender, logger *applog.Logger) *MonthlySummaryJob {
	if logger == nil {
		logger = applog.NewDefault()
	}
	return &MonthlySummaryJob{
		engine:      engine,
		store:       store,
		sender:      sender,
		logger:      logger.WithComponent(applog.ComponentWorker),
		concurrency: defaultSummaryConcurrency,
	}
}

// SummaryResult counts the outcome of one run.
type SummaryResult struct {
	Sent    int64
	Skipped int64
	Failed  int64
}

// Run sends the summaries of the month before now. A failure for one user
// does not stop the others; Run reports an error when any send failed.
func (j *MonthlySummaryJob) Run(ctx context.Context, now time.Time) (SummaryResult, error) {
	var res SummaryResult
	month := core.AddMonths(core.MonthStart(now.In(j.engine.Location())), -1)
	w := core.MonthWindow(month)

	profiles, err := j.store.Profiles().List(ctx)
	if err != nil {
		return res, fmt.Errorf("list profiles: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, p := range profiles {
		if p.Email == "" {
			atomic.AddInt64(&res.Skipped, 1)
			continue
		}
		g.Go(func() error {
			sent, err := j.sendOne(gctx, p, w)
			switch {
			case err != nil:
				atomic.AddInt64(&res.Failed, 1)
				j.logger.ErrorContext(gctx, "Monthly summary failed",
					applog.FieldUserID, p.UserID,
					applog.FieldOperation, applog.OpNotify,
					applog.FieldError, err)
			case sent:
				atomic.AddInt64(&res.Sent, 1)
			default:
				atomic.AddInt64(&res.Skipped, 1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	j.logger.InfoContext(ctx, "Monthly summaries processed",
		applog.FieldPeriod, w.Label,
		"sent", res.Sent,
		"skipped", res.Skipped,
		"failed", res.Failed)
	if res.Failed > 0 {
		return res, fmt.Errorf("%d monthly summaries failed", res.Failed)
	}
	return res, nil
}

// sendOne reports false when the user had no activity in w.
func (j *MonthlySummaryJob) sendOne(ctx context.Context, p core.Profile, w core.Window) (bool, error) {
	st, err := j.engine.StatementFor(ctx, p.UserID, core.PeriodMonth, w)
	if err != nil {
		return false, err
	}
	if len(st.Transactions) == 0 {
		return false, nil
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, st); err != nil {
		return false, err
	}
	filename := fmt.Sprintf("montra_%s.csv", core.MonthKey(w.From))
	if err := j.sender.Send(ctx, notify.MonthlySummary(p, st, buf.Bytes(), filename)); err != nil {
		return false, err
	}
	return true, nil
}
