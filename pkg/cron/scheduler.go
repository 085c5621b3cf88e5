package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"storefront_backend/pkg/config"
)

const jobTimeout = 10 * time.Minute

// Start schedules the subscription jobs in UTC and starts the scheduler. The
// caller stops it on shutdown.
func Start(cfg config.CronConfig, jobs *SubscriptionJobs, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc(cfg.DowngradeSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		jobs.RunDowngradeSweep(ctx)
	}); err != nil {
		return nil, fmt.Errorf("schedule downgrade sweep: %w", err)
	}

	if _, err := c.AddFunc(cfg.WarningSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := jobs.SendExpiryWarnings(ctx); err != nil {
			log.Error("expiry warnings failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule expiry warnings: %w", err)
	}

	c.Start()
	log.Info("cron scheduler started",
		zap.String("downgrade_schedule", cfg.DowngradeSchedule),
		zap.String("warning_schedule", cfg.WarningSchedule))
	return c, nil
}
