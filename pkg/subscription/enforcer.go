package subscription

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/metrics"
)

// Enforcer checks store usage against the limits stored on the store row.
type Enforcer struct {
	db  *gorm.DB
	log *zap.Logger
	now func() time.Time
}

func NewEnforcer(db *gorm.DB, log *zap.Logger) *Enforcer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Enforcer{db: db, log: log, now: time.Now}
}

// SetClock replaces the time source used for the monthly order window.
func (e *Enforcer) SetClock(now func() time.Time) {
	e.now = now
}

type LimitCheck struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Limit   int    `json:"limit"`
	Current int64  `json:"current"`
}

type UsageStats struct {
	StoreID            uint                     `json:"store_id"`
	Plan               model.Plan               `json:"plan"`
	SubscriptionStatus model.SubscriptionStatus `json:"subscription_status"`
	SubscriptionActive bool                     `json:"subscription_active"`

	ProductCount        int64   `json:"product_count"`
	ProductLimit        int     `json:"product_limit"`
	ProductUsagePercent float64 `json:"product_usage_percent"`
	ProductLimitReached bool    `json:"product_limit_reached"`

	OrderCount        int64   `json:"order_count"`
	OrderLimit        int     `json:"order_limit"`
	OrderUsagePercent float64 `json:"order_usage_percent"`
	OrderLimitReached bool    `json:"order_limit_reached"`

	PeriodStart    time.Time `json:"period_start"`
	PeriodEnd      time.Time `json:"period_end"`
	DaysUntilReset int       `json:"days_until_reset"`
}

// MonthWindow returns the UTC calendar month containing now as [start, end).
func MonthWindow(now time.Time) (time.Time, time.Time) {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// DaysUntilReset returns the number of days, rounded up, until the monthly
// order counter resets on the first of next month.
func DaysUntilReset(now time.Time) int {
	_, end := MonthWindow(now)
	return int(math.Ceil(end.Sub(now.UTC()).Hours() / 24))
}

func (e *Enforcer) loadStore(ctx context.Context, storeID uint) (*model.Store, error) {
	var store model.Store
	err := e.db.WithContext(ctx).First(&store, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return &store, nil
}

func (e *Enforcer) countProducts(ctx context.Context, storeID uint) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).Model(&model.Product{}).
		Where("store_id = ?", storeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

func (e *Enforcer) countMonthlyOrders(ctx context.Context, storeID uint, now time.Time) (int64, error) {
	start, end := MonthWindow(now)
	var count int64
	err := e.db.WithContext(ctx).Model(&model.Order{}).
		Where("store_id = ? AND created_at >= ? AND created_at < ?", storeID, start, end).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func limitCheck(kind LimitKind, limit int, current int64) *LimitCheck {
	if limit == model.Unlimited || current < int64(limit) {
		return &LimitCheck{Allowed: true, Limit: limit, Current: current}
	}
	return &LimitCheck{
		Allowed: false,
		Reason:  fmt.Sprintf("%s limit of %d reached for the current plan", kind, limit),
		Limit:   limit,
		Current: current,
	}
}

// CanCreateProduct reports whether the store may add one more product.
func (e *Enforcer) CanCreateProduct(ctx context.Context, storeID uint) (*LimitCheck, error) {
	store, err := e.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.Plan == model.PlanEnterprise {
		return &LimitCheck{Allowed: true, Limit: model.Unlimited}, nil
	}

	count, err := e.countProducts(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return limitCheck(LimitProducts, store.ProductLimit, count), nil
}

// CanCreateOrder reports whether the store may take one more order this month.
func (e *Enforcer) CanCreateOrder(ctx context.Context, storeID uint) (*LimitCheck, error) {
	store, err := e.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.Plan == model.PlanEnterprise {
		return &LimitCheck{Allowed: true, Limit: model.Unlimited}, nil
	}

	count, err := e.countMonthlyOrders(ctx, storeID, e.now())
	if err != nil {
		return nil, err
	}
	return limitCheck(LimitOrders, store.OrderLimit, count), nil
}

// EnsureCanCreateProduct is the fail-fast form of CanCreateProduct.
func (e *Enforcer) EnsureCanCreateProduct(ctx context.Context, storeID uint) error {
	check, err := e.CanCreateProduct(ctx, storeID)
	if err != nil {
		return err
	}
	return e.reject(storeID, LimitProducts, check)
}

// EnsureCanCreateOrder is the fail-fast form of CanCreateOrder.
func (e *Enforcer) EnsureCanCreateOrder(ctx context.Context, storeID uint) error {
	check, err := e.CanCreateOrder(ctx, storeID)
	if err != nil {
		return err
	}
	return e.reject(storeID, LimitOrders, check)
}

func (e *Enforcer) reject(storeID uint, kind LimitKind, check *LimitCheck) error {
	if check.Allowed {
		return nil
	}
	metrics.LimitRejections.WithLabelValues(string(kind)).Inc()
	e.log.Info("plan limit reached",
		zap.Uint("store_id", storeID),
		zap.String("kind", string(kind)),
		zap.Int("limit", check.Limit),
		zap.Int64("current", check.Current))
	return &LimitExceededError{Kind: kind, Limit: check.Limit, Current: check.Current}
}

// GetUsageStats computes the store's current usage. It returns nil, nil when
// the store does not exist.
func (e *Enforcer) GetUsageStats(ctx context.Context, storeID uint) (*UsageStats, error) {
	store, err := e.loadStore(ctx, storeID)
	if errors.Is(err, ErrStoreNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	now := e.now()
	products, err := e.countProducts(ctx, storeID)
	if err != nil {
		return nil, err
	}
	orders, err := e.countMonthlyOrders(ctx, storeID, now)
	if err != nil {
		return nil, err
	}

	productLimit, orderLimit := store.ProductLimit, store.OrderLimit
	if store.Plan == model.PlanEnterprise {
		productLimit, orderLimit = model.Unlimited, model.Unlimited
	}

	start, end := MonthWindow(now)
	return &UsageStats{
		StoreID:             store.ID,
		Plan:                store.Plan,
		SubscriptionStatus:  store.SubscriptionStatus,
		SubscriptionActive:  StoreSubscriptionActive(store, now),
		ProductCount:        products,
		ProductLimit:        productLimit,
		ProductUsagePercent: usagePercent(products, productLimit),
		ProductLimitReached: limitReached(products, productLimit),
		OrderCount:          orders,
		OrderLimit:          orderLimit,
		OrderUsagePercent:   usagePercent(orders, orderLimit),
		OrderLimitReached:   limitReached(orders, orderLimit),
		PeriodStart:         start,
		PeriodEnd:           end,
		DaysUntilReset:      DaysUntilReset(now),
	}, nil
}

func usagePercent(count int64, limit int) float64 {
	if limit == model.Unlimited {
		return 0
	}
	if limit <= 0 {
		return 100
	}
	return math.Round(float64(count) / float64(limit) * 100)
}

func limitReached(count int64, limit int) bool {
	if limit == model.Unlimited {
		return false
	}
	return count >= int64(limit)
}
