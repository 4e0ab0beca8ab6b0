package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"montra/internal/cache"
	applog "montra/internal/log"
)

// Cached memoises dashboard and annual payloads per user. Mutations of a
// user's ledger must call Invalidate.
type Cached struct {
	*Engine
	dashboards *cache.Loader[Dashboard]
	annuals    *cache.Loader[AnnualReport]
	logger     *slog.Logger
}

func NewCached(e *Engine, size int, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{
		Engine:     e,
		dashboards: cache.NewLoader[Dashboard](size, ttl),
		annuals:    cache.NewLoader[AnnualReport](size, ttl),
		logger:     logger,
	}
}

// Register hands the underlying caches to m for periodic cleanup.
func (c *Cached) Register(m *cache.Manager) {
	m.Register(c.dashboards)
	m.Register(c.annuals)
}

func userPrefix(userID int64) string { return fmt.Sprintf("u:%d:", userID) }

// CachedDashboard is Dashboard through the cache. The key includes the hour
// so the greeting and month-to-date window roll over.
func (c *Cached) CachedDashboard(ctx context.Context, userID int64) (Dashboard, error) {
	key := userPrefix(userID) + "dashboard:" + c.Now().Format("2006-01-02T15")
	return c.dashboards.Get(ctx, key, func(ctx context.Context) (Dashboard, error) {
		prefs, err := c.Preferences(ctx, userID)
		if err != nil {
			return Dashboard{}, err
		}
		return c.Dashboard(ctx, userID, prefs)
	})
}

func (c *Cached) CachedAnnual(ctx context.Context, userID int64, year int) (AnnualReport, error) {
	if year == 0 {
		year = c.Now().Year()
	}
	key := fmt.Sprintf("%sannual:%d:%s", userPrefix(userID), year, c.Now().Format("2006-01-02"))
	return c.annuals.Get(ctx, key, func(ctx context.Context) (AnnualReport, error) {
		prefs, err := c.Preferences(ctx, userID)
		if err != nil {
			return AnnualReport{}, err
		}
		return c.Annual(ctx, userID, year, prefs)
	})
}

// Invalidate drops every cached payload of userID.
func (c *Cached) Invalidate(userID int64) {
	n := c.dashboards.Invalidate(userPrefix(userID)) + c.annuals.Invalidate(userPrefix(userID))
	if n > 0 {
		c.logger.Debug("Report cache invalidated",
			applog.FieldComponent, applog.ComponentReport,
			applog.FieldUserID, userID,
			applog.FieldCount, n)
	}
}

// Entries returns the number of cached dashboards and annual reports.
func (c *Cached) Entries() (dashboards, annuals int) {
	return c.dashboards.Size(), c.annuals.Size()
}
