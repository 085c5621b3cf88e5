package billing

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/internal/testdb"
	"storefront_backend/pkg/email"
	"storefront_backend/pkg/subscription"
)

type fakeProvider struct {
	customers  int
	checkouts  []string
	canceled   []string
	periodEnd  time.Time
	failCancel bool
}

func (f *fakeProvider) CreateCustomer(email, name string, storeID uint) (string, error) {
	f.customers++
	return "cus_new", nil
}

func (f *fakeProvider) CreateCheckoutSession(customerID, priceID string, storeID uint) (string, error) {
	f.checkouts = append(f.checkouts, customerID+":"+priceID)
	return "https://checkout.stripe.test/s/" + priceID, nil
}

func (f *fakeProvider) CancelAtPeriodEnd(subscriptionID string) (time.Time, error) {
	if f.failCancel {
		return time.Time{}, errors.New("stripe down")
	}
	f.canceled = append(f.canceled, subscriptionID)
	return f.periodEnd, nil
}

type recordingNotifier struct {
	email.Nop
	started  []string
	canceled []string
}

func (r *recordingNotifier) SendSubscriptionStartedEmail(to string, data email.SubscriptionEmailData) error {
	r.started = append(r.started, data.PlanName)
	return nil
}

func (r *recordingNotifier) SendSubscriptionCancelledEmail(to string, data email.SubscriptionCancelledData) error {
	r.canceled = append(r.canceled, data.PlanName)
	return nil
}

var prices = map[string]string{
	"price_basic": "BASIC",
	"price_pro":   "PRO",
	"price_bogus": "GOLD",
}

func setup(t *testing.T) (*Service, *gorm.DB, *fakeProvider, *recordingNotifier) {
	t.Helper()
	db := testdb.Open(t)
	provider := &fakeProvider{periodEnd: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	return NewService(db, provider, prices, notifier, nil), db, provider, notifier
}

func reload(t *testing.T, db *gorm.DB, id uint) model.Store {
	t.Helper()
	var store model.Store
	require.NoError(t, db.First(&store, id).Error)
	return store
}

func event(t *testing.T, typ string, obj interface{}) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"id":     "evt_1",
		"object": "event",
		"type":   typ,
		"data":   map[string]interface{}{"object": obj},
	})
	require.NoError(t, err)
	var e stripe.Event
	require.NoError(t, json.Unmarshal(raw, &e))
	return e
}

func TestPlanForPrice(t *testing.T) {
	s, _, _, _ := setup(t)

	plan, ok := s.PlanForPrice("price_pro")
	assert.True(t, ok)
	assert.Equal(t, model.PlanPro, plan)

	_, ok = s.PlanForPrice("price_bogus")
	assert.False(t, ok)
}

func TestStatusFromStripe(t *testing.T) {
	tests := map[stripe.SubscriptionStatus]model.SubscriptionStatus{
		stripe.SubscriptionStatusTrialing:          model.StatusTrial,
		stripe.SubscriptionStatusActive:            model.StatusActive,
		stripe.SubscriptionStatusPastDue:           model.StatusPastDue,
		stripe.SubscriptionStatusUnpaid:            model.StatusPastDue,
		stripe.SubscriptionStatusCanceled:          model.StatusCanceled,
		stripe.SubscriptionStatusIncompleteExpired: model.StatusExpired,
		stripe.SubscriptionStatusPaused:            model.StatusPaused,
	}
	for in, want := range tests {
		got, ok := StatusFromStripe(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := StatusFromStripe("mystery")
	assert.False(t, ok)
}

func TestCheckoutCreatesCustomerOnce(t *testing.T) {
	s, db, provider, _ := setup(t)
	ctx := context.Background()
	store := testdb.CreateStore(t, db, "demo", model.PlanFree, 10, 50)

	url, err := s.Checkout(ctx, store.ID, model.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.test/s/price_pro", url)

	_, err = s.Checkout(ctx, store.ID, model.PlanBasic)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.customers)
	assert.Equal(t, []string{"cus_new:price_pro", "cus_new:price_basic"}, provider.checkouts)
	assert.Equal(t, "cus_new", reload(t, db, store.ID).StripeCustomerID)

	_, err = s.Checkout(ctx, store.ID, model.PlanEnterprise)
	assert.ErrorIs(t, err, ErrPlanNotPurchasable)
}

func TestCheckoutWithoutProvider(t *testing.T) {
	db := testdb.Open(t)
	s := NewService(db, nil, prices, nil, nil)

	_, err := s.Checkout(context.Background(), 1, model.PlanPro)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestCancel(t *testing.T) {
	s, db, provider, notifier := setup(t)
	ctx := context.Background()
	store := testdb.CreateStore(t, db, "demo", model.PlanPro, 1000, 5000)

	_, err := s.Cancel(ctx, store.ID)
	assert.ErrorIs(t, err, ErrNoSubscription)

	require.NoError(t, db.Model(store).Update("stripe_subscription_id", "sub_1").Error)

	updated, err := s.Cancel(ctx, store.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, updated.SubscriptionStatus)
	assert.Equal(t, []string{"sub_1"}, provider.canceled)

	stored := reload(t, db, store.ID)
	assert.Equal(t, model.PlanPro, stored.Plan)
	require.NotNil(t, stored.SubscriptionEndsAt)
	assert.True(t, stored.SubscriptionEndsAt.Equal(provider.periodEnd))
	assert.Equal(t, []string{"Pro"}, notifier.canceled)
}

func TestApplySubscriptionUpdateRejectsInvalidTransition(t *testing.T) {
	s, db, _, _ := setup(t)
	store := testdb.CreateStore(t, db, "demo", model.PlanPro, 1000, 5000)
	require.NoError(t, db.Model(store).Update("subscription_status", model.StatusPaused).Error)

	_, err := s.ApplySubscriptionUpdate(context.Background(), store.ID, SubscriptionUpdate{
		Plan:   model.PlanBasic,
		Status: model.StatusPastDue,
	})
	var invalid *subscription.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)

	stored := reload(t, db, store.ID)
	assert.Equal(t, model.StatusPaused, stored.SubscriptionStatus)
	assert.Equal(t, model.PlanPro, stored.Plan)
}

func TestMarkPaymentFailed(t *testing.T) {
	s, db, _, _ := setup(t)
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	store := testdb.CreateStore(t, db, "demo", model.PlanBasic, 100, 500)

	updated, err := s.MarkPaymentFailed(context.Background(), store.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPastDue, updated.SubscriptionStatus)
	require.NotNil(t, updated.SubscriptionEndsAt)
	assert.True(t, updated.SubscriptionEndsAt.Equal(now))

	// Still inside the grace period.
	assert.True(t, subscription.StoreSubscriptionActive(updated, now.Add(6*24*time.Hour)))
	assert.False(t, subscription.StoreSubscriptionActive(updated, now.Add(8*24*time.Hour)))
}

func TestWebhookSubscriptionUpdated(t *testing.T) {
	s, db, _, notifier := setup(t)
	ctx := context.Background()
	store := testdb.CreateStore(t, db, "demo", model.PlanFree, 10, 50)
	require.NoError(t, db.Model(store).Update("stripe_customer_id", "cus_9").Error)

	sub := map[string]interface{}{
		"id":                 "sub_9",
		"object":             "subscription",
		"customer":           "cus_9",
		"status":             "active",
		"current_period_end": int64(1776211200),
		"items": map[string]interface{}{
			"object": "list",
			"data": []interface{}{
				map[string]interface{}{"id": "si_1", "price": map[string]interface{}{"id": "price_pro"}},
			},
		},
	}
	require.NoError(t, s.HandleEvent(ctx, event(t, "customer.subscription.updated", sub)))

	stored := reload(t, db, store.ID)
	assert.Equal(t, model.PlanPro, stored.Plan)
	assert.Equal(t, 1000, stored.ProductLimit)
	assert.Equal(t, model.StatusActive, stored.SubscriptionStatus)
	assert.Equal(t, "sub_9", stored.StripeSubscriptionID)
	require.NotNil(t, stored.SubscriptionEndsAt)
	assert.Equal(t, int64(1776211200), stored.SubscriptionEndsAt.Unix())
	assert.Equal(t, []string{"Pro"}, notifier.started)

	// Cancellation scheduled in the Stripe dashboard.
	sub["cancel_at_period_end"] = true
	require.NoError(t, s.HandleEvent(ctx, event(t, "customer.subscription.updated", sub)))
	assert.Equal(t, model.StatusCanceled, reload(t, db, store.ID).SubscriptionStatus)
}

func TestWebhookDeletedAndPaymentFailed(t *testing.T) {
	s, db, _, _ := setup(t)
	ctx := context.Background()
	store := testdb.CreateStore(t, db, "demo", model.PlanBasic, 100, 500)
	require.NoError(t, db.Model(store).Update("stripe_customer_id", "cus_1").Error)

	invoice := map[string]interface{}{"id": "in_1", "object": "invoice", "customer": "cus_1"}
	require.NoError(t, s.HandleEvent(ctx, event(t, "invoice.payment_failed", invoice)))
	assert.Equal(t, model.StatusPastDue, reload(t, db, store.ID).SubscriptionStatus)

	deleted := map[string]interface{}{"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "canceled", "ended_at": int64(1773532800)}
	require.NoError(t, s.HandleEvent(ctx, event(t, "customer.subscription.deleted", deleted)))

	stored := reload(t, db, store.ID)
	assert.Equal(t, model.StatusCanceled, stored.SubscriptionStatus)
	assert.Equal(t, int64(1773532800), stored.SubscriptionEndsAt.Unix())
}

func TestWebhookIgnoresUnknownCustomerAndInvalidTransition(t *testing.T) {
	s, db, _, _ := setup(t)
	ctx := context.Background()
	store := testdb.CreateStore(t, db, "demo", model.PlanBasic, 100, 500)
	require.NoError(t, db.Model(store).Updates(map[string]interface{}{
		"stripe_customer_id":  "cus_1",
		"subscription_status": model.StatusExpired,
	}).Error)

	unknown := map[string]interface{}{"id": "sub_x", "object": "subscription", "customer": "cus_unknown", "status": "active"}
	assert.NoError(t, s.HandleEvent(ctx, event(t, "customer.subscription.updated", unknown)))

	pastDue := map[string]interface{}{"id": "sub_1", "object": "subscription", "customer": "cus_1", "status": "past_due"}
	assert.NoError(t, s.HandleEvent(ctx, event(t, "customer.subscription.updated", pastDue)))
	assert.Equal(t, model.StatusExpired, reload(t, db, store.ID).SubscriptionStatus)

	invoice := map[string]interface{}{"id": "in_1", "object": "invoice", "customer": "cus_1"}
	assert.NoError(t, s.HandleEvent(ctx, event(t, "invoice.payment_failed", invoice)))
	assert.Equal(t, model.StatusExpired, reload(t, db, store.ID).SubscriptionStatus)

	assert.NoError(t, s.HandleEvent(ctx, event(t, "charge.refunded", map[string]interface{}{"id": "ch_1"})))
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	s, db, _, _ := setup(t)
	store := testdb.CreateStore(t, db, "demo", model.PlanFree, 10, 50)

	session := map[string]interface{}{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": "1",
		"customer":            "cus_7",
		"subscription":        "sub_7",
	}
	require.Equal(t, uint(1), store.ID)
	require.NoError(t, s.HandleEvent(context.Background(), event(t, "checkout.session.completed", session)))

	stored := reload(t, db, store.ID)
	assert.Equal(t, "cus_7", stored.StripeCustomerID)
	assert.Equal(t, "sub_7", stored.StripeSubscriptionID)
}
