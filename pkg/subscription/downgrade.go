package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/metrics"
)

var ErrUnknownPlan = errors.New("unknown plan")

type DowngradeResult struct {
	StoreID  uint       `json:"store_id"`
	Slug     string     `json:"slug"`
	FromPlan model.Plan `json:"from_plan"`
	Err      error      `json:"-"`
}

// Succeeded reports whether the store was moved to the Free plan.
func (r DowngradeResult) Succeeded() bool { return r.Err == nil }

type DowngradeReport struct {
	Checked    int               `json:"checked"`
	Downgraded int               `json:"downgraded"`
	Failed     int               `json:"failed"`
	Results    []DowngradeResult `json:"results"`
}

// GetStoresForDowngrade returns paid stores whose trial ended, whose canceled
// or expired subscription ran out, or that stayed past due for longer than
// PastDueDowngradeAfter.
func (e *Enforcer) GetStoresForDowngrade(ctx context.Context, now time.Time) ([]model.Store, error) {
	pastDueCutoff := now.Add(-PastDueDowngradeAfter)

	var stores []model.Store
	err := e.db.WithContext(ctx).
		Where("plan <> ?", model.PlanFree).
		Where(e.db.Where("subscription_status = ? AND trial_ends_at < ?", model.StatusTrial, now).
			Or("subscription_status IN ? AND subscription_ends_at < ?",
				[]model.SubscriptionStatus{model.StatusCanceled, model.StatusExpired}, now).
			Or("subscription_status = ? AND subscription_ends_at < ?", model.StatusPastDue, pastDueCutoff)).
		Order("id").
		Find(&stores).Error
	if err != nil {
		return nil, fmt.Errorf("find stores for downgrade: %w", err)
	}
	return stores, nil
}

// DowngradeToFree moves a store to the Free plan and its limits.
func (e *Enforcer) DowngradeToFree(ctx context.Context, storeID uint) error {
	limits := LimitsFor(model.PlanFree)
	result := e.db.WithContext(ctx).Model(&model.Store{}).
		Where("id = ?", storeID).
		Updates(map[string]interface{}{
			"plan":                   model.PlanFree,
			"product_limit":          limits.MaxProducts,
			"order_limit":            limits.MaxOrders,
			"subscription_status":    model.StatusActive,
			"trial_ends_at":          nil,
			"subscription_ends_at":   nil,
			"stripe_subscription_id": "",
		})
	if result.Error != nil {
		return fmt.Errorf("downgrade store %d: %w", storeID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStoreNotFound
	}
	return nil
}

// DowngradeExpiredStores downgrades every store returned by
// GetStoresForDowngrade, one at a time. A failing store is recorded in the
// report and does not stop the sweep.
func (e *Enforcer) DowngradeExpiredStores(ctx context.Context, now time.Time) (*DowngradeReport, error) {
	stores, err := e.GetStoresForDowngrade(ctx, now)
	if err != nil {
		return nil, err
	}

	report := &DowngradeReport{Checked: len(stores), Results: make([]DowngradeResult, 0, len(stores))}
	for _, store := range stores {
		res := DowngradeResult{StoreID: store.ID, Slug: store.Slug, FromPlan: store.Plan}
		res.Err = e.DowngradeToFree(ctx, store.ID)
		if res.Err != nil {
			report.Failed++
			metrics.Downgrades.WithLabelValues("failed").Inc()
			e.log.Error("store downgrade failed",
				zap.Uint("store_id", store.ID),
				zap.String("slug", store.Slug),
				zap.Error(res.Err))
		} else {
			report.Downgraded++
			metrics.Downgrades.WithLabelValues("downgraded").Inc()
			e.log.Info("store downgraded to free plan",
				zap.Uint("store_id", store.ID),
				zap.String("slug", store.Slug),
				zap.String("from_plan", string(store.Plan)))
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

// ChangePlan assigns plan to the store and re-derives its limits.
func (e *Enforcer) ChangePlan(ctx context.Context, storeID uint, plan model.Plan) (*model.Store, error) {
	if !plan.Valid() {
		return nil, ErrUnknownPlan
	}
	store, err := e.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	ApplyPlan(store, plan)
	err = e.db.WithContext(ctx).Model(store).
		Select("plan", "product_limit", "order_limit").
		Updates(store).Error
	if err != nil {
		return nil, fmt.Errorf("change plan: %w", err)
	}
	return store, nil
}

// ChangeLimits overrides the limits derived from the store's plan.
func (e *Enforcer) ChangeLimits(ctx context.Context, storeID uint, productLimit, orderLimit int) (*model.Store, error) {
	store, err := e.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	store.ProductLimit = productLimit
	store.OrderLimit = orderLimit
	err = e.db.WithContext(ctx).Model(store).
		Select("product_limit", "order_limit").
		Updates(store).Error
	if err != nil {
		return nil, fmt.Errorf("change limits: %w", err)
	}
	return store, nil
}

// IsNotFound reports whether err means the store does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrStoreNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}
