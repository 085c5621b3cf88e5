package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/subscription"
)

// HandleEvent applies a verified Stripe webhook event. Events for unknown
// customers and event types the backend does not track are ignored.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	s.log.Info("processing stripe webhook event", zap.String("type", string(event.Type)), zap.String("id", event.ID))

	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.handleCheckoutCompleted(ctx, &session)

	case "customer.subscription.created", "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.handleSubscriptionChanged(ctx, &sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.handleSubscriptionDeleted(ctx, &sub)

	case "invoice.payment_failed":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		if invoice.Customer == nil {
			return nil
		}
		storeID, err := s.findStore(ctx, invoice.Customer.ID, nil)
		if err != nil || storeID == 0 {
			return err
		}
		_, err = s.MarkPaymentFailed(ctx, storeID)
		return s.ignoreInvalidTransition(storeID, err)
	}
	return nil
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, session *stripe.CheckoutSession) error {
	id, err := strconv.ParseUint(session.ClientReferenceID, 10, 64)
	if err != nil {
		s.log.Warn("checkout session without store reference", zap.String("session_id", session.ID))
		return nil
	}
	updates := map[string]interface{}{}
	if session.Customer != nil {
		updates["stripe_customer_id"] = session.Customer.ID
	}
	if session.Subscription != nil {
		updates["stripe_subscription_id"] = session.Subscription.ID
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&model.Store{}).Where("id = ?", id).Updates(updates).Error
}

func (s *Service) handleSubscriptionChanged(ctx context.Context, sub *stripe.Subscription) error {
	storeID, err := s.findStore(ctx, customerID(sub), sub.Metadata)
	if err != nil || storeID == 0 {
		return err
	}

	status, ok := StatusFromStripe(sub.Status)
	if !ok {
		s.log.Warn("unhandled stripe subscription status", zap.String("status", string(sub.Status)))
		return nil
	}
	if sub.CancelAtPeriodEnd && status == model.StatusActive {
		status = model.StatusCanceled
	}

	u := SubscriptionUpdate{Status: status, StripeSubscriptionID: sub.ID}
	if plan, ok := s.planFromSubscription(sub); ok {
		u.Plan = plan
	}
	if sub.TrialEnd > 0 {
		u.TrialEndsAt = unixPtr(sub.TrialEnd)
	}
	if sub.CurrentPeriodEnd > 0 {
		u.EndsAt = unixPtr(sub.CurrentPeriodEnd)
	}

	_, err = s.ApplySubscriptionUpdate(ctx, storeID, u)
	return s.ignoreInvalidTransition(storeID, err)
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, sub *stripe.Subscription) error {
	storeID, err := s.findStore(ctx, customerID(sub), sub.Metadata)
	if err != nil || storeID == 0 {
		return err
	}

	endedAt := s.now().UTC()
	if sub.EndedAt > 0 {
		endedAt = time.Unix(sub.EndedAt, 0).UTC()
	}
	_, err = s.ApplySubscriptionUpdate(ctx, storeID, SubscriptionUpdate{
		Status: model.StatusCanceled,
		EndsAt: &endedAt,
	})
	return s.ignoreInvalidTransition(storeID, err)
}

// ignoreInvalidTransition acknowledges out-of-order events and events for
// deleted stores instead of making Stripe retry them forever.
func (s *Service) ignoreInvalidTransition(storeID uint, err error) error {
	if errors.Is(err, subscription.ErrStoreNotFound) {
		s.log.Warn("stripe event for missing store", zap.Uint("store_id", storeID))
		return nil
	}
	var invalid *subscription.InvalidTransitionError
	if errors.As(err, &invalid) {
		s.log.Warn("ignoring stripe event with invalid status transition",
			zap.Uint("store_id", storeID),
			zap.String("from", string(invalid.From)),
			zap.String("to", string(invalid.To)))
		return nil
	}
	return err
}

// findStore locates the store by Stripe customer, falling back to the
// store_id metadata written at checkout. It returns 0 when nothing matches.
func (s *Service) findStore(ctx context.Context, customer string, metadata map[string]string) (uint, error) {
	var store model.Store
	if customer != "" {
		result := s.db.WithContext(ctx).Where("stripe_customer_id = ?", customer).Limit(1).Find(&store)
		if result.Error != nil {
			return 0, fmt.Errorf("find store by customer: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return store.ID, nil
		}
	}
	if ref, ok := metadata["store_id"]; ok {
		if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
			return uint(id), nil
		}
	}
	s.log.Warn("stripe event for unknown customer", zap.String("customer", customer))
	return 0, nil
}

func (s *Service) planFromSubscription(sub *stripe.Subscription) (model.Plan, bool) {
	if sub.Items == nil {
		return "", false
	}
	for _, item := range sub.Items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		if plan, ok := s.PlanForPrice(item.Price.ID); ok {
			return plan, true
		}
	}
	return "", false
}

func customerID(sub *stripe.Subscription) string {
	if sub.Customer == nil {
		return ""
	}
	return sub.Customer.ID
}

func unixPtr(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}
