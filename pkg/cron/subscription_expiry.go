package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/email"
	"storefront_backend/pkg/subscription"
)

// WarningDays are the days before expiry on which owners are warned.
var WarningDays = []int{7, 3}

// SubscriptionJobs holds the scheduled subscription maintenance tasks.
type SubscriptionJobs struct {
	db       *gorm.DB
	enforcer *subscription.Enforcer
	notifier email.Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewSubscriptionJobs(db *gorm.DB, enforcer *subscription.Enforcer, notifier email.Notifier, log *zap.Logger) *SubscriptionJobs {
	if notifier == nil {
		notifier = email.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SubscriptionJobs{db: db, enforcer: enforcer, notifier: notifier, log: log, now: time.Now}
}

// RunDowngradeSweep moves expired paid stores to the Free plan and tells
// their owners.
func (j *SubscriptionJobs) RunDowngradeSweep(ctx context.Context) (*subscription.DowngradeReport, error) {
	j.log.Info("running subscription downgrade sweep")

	report, err := j.enforcer.DowngradeExpiredStores(ctx, j.now().UTC())
	if err != nil {
		j.log.Error("downgrade sweep failed", zap.Error(err))
		return nil, err
	}

	free := subscription.LimitsFor(model.PlanFree)
	for _, res := range report.Results {
		if !res.Succeeded() {
			continue
		}
		var store model.Store
		if err := j.db.WithContext(ctx).First(&store, res.StoreID).Error; err != nil {
			j.log.Warn("could not load downgraded store", zap.Uint("store_id", res.StoreID), zap.Error(err))
			continue
		}
		err := j.notifier.SendDowngradeNotice(store.OwnerEmail, email.DowngradeNoticeData{
			StoreName:   store.Name,
			FromPlan:    subscription.LimitsFor(res.FromPlan).Name,
			MaxProducts: free.MaxProducts,
			MaxOrders:   free.MaxOrders,
		})
		if err != nil {
			j.log.Warn("could not send downgrade notice", zap.Uint("store_id", store.ID), zap.Error(err))
		}
	}

	j.log.Info("downgrade sweep finished",
		zap.Int("checked", report.Checked),
		zap.Int("downgraded", report.Downgraded),
		zap.Int("failed", report.Failed))
	return report, nil
}

// SendExpiryWarnings emails owners of trials and canceled subscriptions that
// end in exactly one of WarningDays days. It returns the number of emails sent.
func (j *SubscriptionJobs) SendExpiryWarnings(ctx context.Context) (int, error) {
	now := j.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	sent := 0
	for _, days := range WarningDays {
		from := today.AddDate(0, 0, days)
		to := from.AddDate(0, 0, 1)

		var stores []model.Store
		err := j.db.WithContext(ctx).
			Where("plan <> ?", model.PlanFree).
			Where(j.db.Where("subscription_status = ? AND trial_ends_at >= ? AND trial_ends_at < ?", model.StatusTrial, from, to).
				Or("subscription_status = ? AND subscription_ends_at >= ? AND subscription_ends_at < ?", model.StatusCanceled, from, to)).
			Find(&stores).Error
		if err != nil {
			return sent, fmt.Errorf("find stores expiring in %d days: %w", days, err)
		}

		j.log.Info("stores with expiring subscription", zap.Int("days", days), zap.Int("count", len(stores)))

		for _, store := range stores {
			data := email.SubscriptionExpiryWarningData{
				StoreName: store.Name,
				PlanName:  subscription.LimitsFor(store.Plan).Name,
				DaysLeft:  days,
			}
			if store.SubscriptionStatus == model.StatusTrial {
				data.IsTrial = true
				data.ExpiryDate = *store.TrialEndsAt
			} else {
				data.ExpiryDate = *store.SubscriptionEndsAt
			}

			if err := j.notifier.SendSubscriptionExpiryWarning(store.OwnerEmail, data); err != nil {
				j.log.Warn("could not send expiry warning",
					zap.Uint("store_id", store.ID),
					zap.String("email", store.OwnerEmail),
					zap.Error(err))
				continue
			}
			sent++
		}
	}
	return sent, nil
}
