package billing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// PaymentProvider is the slice of the Stripe API used by the billing service.
type PaymentProvider interface {
	CreateCustomer(email, name string, storeID uint) (string, error)
	CreateCheckoutSession(customerID, priceID string, storeID uint) (string, error)
	CancelAtPeriodEnd(subscriptionID string) (time.Time, error)
}

type stripeProvider struct {
	api        *client.API
	successURL string
	cancelURL  string
}

// NewStripeProvider returns a PaymentProvider backed by the Stripe API.
func NewStripeProvider(secretKey, successURL, cancelURL string) PaymentProvider {
	return &stripeProvider{
		api:        client.New(secretKey, nil),
		successURL: successURL,
		cancelURL:  cancelURL,
	}
}

func storeRef(storeID uint) string {
	return strconv.FormatUint(uint64(storeID), 10)
}

func (p *stripeProvider) CreateCustomer(email, name string, storeID uint) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.AddMetadata("store_id", storeRef(storeID))

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}
	return c.ID, nil
}

func (p *stripeProvider) CreateCheckoutSession(customerID, priceID string, storeID uint) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(storeRef(storeID)),
		SuccessURL:        stripe.String(p.successURL),
		CancelURL:         stripe.String(p.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{"store_id": storeRef(storeID)},
		},
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return s.URL, nil
}

func (p *stripeProvider) CancelAtPeriodEnd(subscriptionID string) (time.Time, error) {
	sub, err := p.api.Subscriptions.Update(subscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("cancel stripe subscription: %w", err)
	}
	return time.Unix(sub.CurrentPeriodEnd, 0).UTC(), nil
}
