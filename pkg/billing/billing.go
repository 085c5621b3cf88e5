// Package billing keeps store plans and subscription statuses in sync with
// Stripe.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/email"
	"storefront_backend/pkg/subscription"
)

var (
	ErrNotConfigured      = errors.New("billing is not configured")
	ErrPlanNotPurchasable = errors.New("plan cannot be purchased")
	ErrNoSubscription     = errors.New("store has no paid subscription")
)

// Service applies checkout, cancellation and webhook updates to stores.
type Service struct {
	db       *gorm.DB
	provider PaymentProvider
	notifier email.Notifier
	log      *zap.Logger
	now      func() time.Time

	pricePlans map[string]model.Plan
	planPrices map[model.Plan]string
}

// NewService builds the billing service. pricePlans maps Stripe price IDs to
// plan names; unknown plan names are skipped. provider may be nil, in which
// case Checkout and Cancel return ErrNotConfigured.
func NewService(db *gorm.DB, provider PaymentProvider, pricePlans map[string]string, notifier email.Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if notifier == nil {
		notifier = email.Nop{}
	}
	s := &Service{
		db:         db,
		provider:   provider,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
		pricePlans: make(map[string]model.Plan),
		planPrices: make(map[model.Plan]string),
	}
	for priceID, name := range pricePlans {
		plan := model.Plan(name)
		if !plan.Valid() || plan == model.PlanFree {
			log.Warn("ignoring stripe price with unknown plan", zap.String("price_id", priceID), zap.String("plan", name))
			continue
		}
		s.pricePlans[priceID] = plan
		s.planPrices[plan] = priceID
	}
	return s
}

// Purchasable reports whether plan has a Stripe price configured.
func (s *Service) Purchasable(plan model.Plan) bool {
	_, ok := s.planPrices[plan]
	return ok
}

// PlanForPrice returns the plan sold under a Stripe price ID.
func (s *Service) PlanForPrice(priceID string) (model.Plan, bool) {
	plan, ok := s.pricePlans[priceID]
	return plan, ok
}

// StatusFromStripe maps a Stripe subscription status to a store status.
func StatusFromStripe(status stripe.SubscriptionStatus) (model.SubscriptionStatus, bool) {
	switch status {
	case stripe.SubscriptionStatusTrialing:
		return model.StatusTrial, true
	case stripe.SubscriptionStatusActive:
		return model.StatusActive, true
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid, stripe.SubscriptionStatusIncomplete:
		return model.StatusPastDue, true
	case stripe.SubscriptionStatusCanceled:
		return model.StatusCanceled, true
	case stripe.SubscriptionStatusIncompleteExpired:
		return model.StatusExpired, true
	case stripe.SubscriptionStatusPaused:
		return model.StatusPaused, true
	}
	return "", false
}

func (s *Service) loadStore(ctx context.Context, storeID uint) (*model.Store, error) {
	var store model.Store
	err := s.db.WithContext(ctx).First(&store, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, subscription.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return &store, nil
}

// Checkout starts a Stripe Checkout session for plan and returns its URL.
func (s *Service) Checkout(ctx context.Context, storeID uint, plan model.Plan) (string, error) {
	if s.provider == nil {
		return "", ErrNotConfigured
	}
	priceID, ok := s.planPrices[plan]
	if !ok {
		return "", ErrPlanNotPurchasable
	}

	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return "", err
	}

	if store.StripeCustomerID == "" {
		customerID, err := s.provider.CreateCustomer(store.OwnerEmail, store.Name, store.ID)
		if err != nil {
			return "", err
		}
		store.StripeCustomerID = customerID
		if err := s.db.WithContext(ctx).Model(store).Update("stripe_customer_id", customerID).Error; err != nil {
			return "", fmt.Errorf("save stripe customer: %w", err)
		}
	}

	url, err := s.provider.CreateCheckoutSession(store.StripeCustomerID, priceID, store.ID)
	if err != nil {
		return "", err
	}
	s.log.Info("checkout session created",
		zap.Uint("store_id", store.ID),
		zap.String("plan", string(plan)))
	return url, nil
}

// Cancel cancels the store's subscription at the end of the paid period. The
// store keeps its plan until the downgrade sweep picks it up.
func (s *Service) Cancel(ctx context.Context, storeID uint) (*model.Store, error) {
	if s.provider == nil {
		return nil, ErrNotConfigured
	}
	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.StripeSubscriptionID == "" {
		return nil, ErrNoSubscription
	}
	if !subscription.CanTransition(store.SubscriptionStatus, model.StatusCanceled) {
		return nil, &subscription.InvalidTransitionError{From: store.SubscriptionStatus, To: model.StatusCanceled}
	}

	endsAt, err := s.provider.CancelAtPeriodEnd(store.StripeSubscriptionID)
	if err != nil {
		return nil, err
	}

	return s.ApplySubscriptionUpdate(ctx, store.ID, SubscriptionUpdate{
		Status: model.StatusCanceled,
		EndsAt: &endsAt,
	})
}

// SubscriptionUpdate is a partial change to a store's subscription. Zero
// fields are left untouched.
type SubscriptionUpdate struct {
	Plan                 model.Plan
	Status               model.SubscriptionStatus
	TrialEndsAt          *time.Time
	EndsAt               *time.Time
	StripeSubscriptionID string
}

// ApplySubscriptionUpdate writes u to the store. A status change the state
// machine does not allow is rejected with *subscription.InvalidTransitionError
// and nothing is written.
func (s *Service) ApplySubscriptionUpdate(ctx context.Context, storeID uint, u SubscriptionUpdate) (*model.Store, error) {
	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	prevStatus, prevPlan := store.SubscriptionStatus, store.Plan

	if u.Status != "" {
		if err := subscription.Transition(store, u.Status); err != nil {
			return nil, err
		}
	}
	if u.Plan != "" && u.Plan != store.Plan {
		if !u.Plan.Valid() {
			return nil, subscription.ErrUnknownPlan
		}
		subscription.ApplyPlan(store, u.Plan)
	}
	if u.TrialEndsAt != nil {
		store.TrialEndsAt = u.TrialEndsAt
	}
	if u.EndsAt != nil {
		store.SubscriptionEndsAt = u.EndsAt
	}
	if u.StripeSubscriptionID != "" {
		store.StripeSubscriptionID = u.StripeSubscriptionID
	}

	err = s.db.WithContext(ctx).Model(store).
		Select("plan", "product_limit", "order_limit", "subscription_status",
			"trial_ends_at", "subscription_ends_at", "stripe_subscription_id").
		Updates(store).Error
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}

	s.log.Info("store subscription updated",
		zap.Uint("store_id", store.ID),
		zap.String("plan", string(store.Plan)),
		zap.String("from_status", string(prevStatus)),
		zap.String("status", string(store.SubscriptionStatus)))
	s.notify(store, prevStatus, prevPlan)
	return store, nil
}

// MarkPaymentFailed moves the store to PAST_DUE. The grace period starts at
// the end of the unpaid period, or now if that lies in the future.
func (s *Service) MarkPaymentFailed(ctx context.Context, storeID uint) (*model.Store, error) {
	store, err := s.loadStore(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.SubscriptionStatus == model.StatusPastDue {
		return store, nil
	}

	now := s.now().UTC()
	endsAt := store.SubscriptionEndsAt
	if endsAt == nil || endsAt.After(now) {
		endsAt = &now
	}
	return s.ApplySubscriptionUpdate(ctx, storeID, SubscriptionUpdate{
		Status: model.StatusPastDue,
		EndsAt: endsAt,
	})
}

func (s *Service) notify(store *model.Store, prevStatus model.SubscriptionStatus, prevPlan model.Plan) {
	var err error
	limits := subscription.LimitsFor(store.Plan)
	switch {
	case store.SubscriptionStatus == model.StatusActive && (prevStatus != model.StatusActive || prevPlan != store.Plan):
		err = s.notifier.SendSubscriptionStartedEmail(store.OwnerEmail, email.SubscriptionEmailData{
			StoreName:   store.Name,
			PlanName:    limits.Name,
			MaxProducts: limits.MaxProducts,
			MaxOrders:   limits.MaxOrders,
			RenewsAt:    store.SubscriptionEndsAt,
		})
	case store.SubscriptionStatus == model.StatusCanceled && prevStatus != model.StatusCanceled:
		err = s.notifier.SendSubscriptionCancelledEmail(store.OwnerEmail, email.SubscriptionCancelledData{
			StoreName: store.Name,
			PlanName:  limits.Name,
			EndsAt:    store.SubscriptionEndsAt,
		})
	}
	if err != nil {
		s.log.Warn("could not send subscription email", zap.Uint("store_id", store.ID), zap.Error(err))
	}
}
