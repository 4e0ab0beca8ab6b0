package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	applog "montra/internal/log"
)

// DefaultSummarySchedule runs the summary at 06:00 on the first of the month.
const DefaultSummarySchedule = "0 6 1 * *"

// Scheduler runs jobs on cron specs in a fixed location.
type Scheduler struct {
	cron   *cron.Cron
	loc    *time.Location
	logger *applog.Logger
}

func NewScheduler(loc *time.Location, logger *applog.Logger) *Scheduler {
	if logger == nil {
		logger = applog.NewDefault()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		loc:    loc,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// Add registers job under spec. Each run gets ctx and the trigger time.
func (s *Scheduler) Add(ctx context.Context, name, spec string, job func(context.Context, time.Time) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		start := time.Now().In(s.loc)
		s.logger.InfoContext(ctx, "Scheduled job started", applog.FieldOperation, name)
		if err := job(ctx, start); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled job failed",
				applog.FieldOperation, name,
				applog.FieldError, err,
				applog.FieldDuration, time.Since(start).Milliseconds())
			return
		}
		s.logger.InfoContext(ctx, "Scheduled job completed",
			applog.FieldOperation, name,
			applog.FieldDuration, time.Since(start).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	return nil
}

// SummaryJob adapts a MonthlySummaryJob to Add.
func SummaryJob(j *MonthlySummaryJob) func(context.Context, time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		_, err := j.Run(ctx, now)
		return err
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
