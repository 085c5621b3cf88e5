package subscription

import (
	"fmt"
	"time"

	"storefront_backend/internal/model"
)

const (
	// PastDueGracePeriod keeps a past-due subscription usable after its period ended.
	PastDueGracePeriod = 7 * 24 * time.Hour
	// PastDueDowngradeAfter is how long a past-due store keeps its plan before the sweep drops it to Free.
	PastDueDowngradeAfter = 30 * 24 * time.Hour
)

// IsSubscriptionActive reports whether a subscription in the given state grants
// access at now. A past-due or canceled subscription without an end date is
// treated as inactive.
func IsSubscriptionActive(status model.SubscriptionStatus, trialEndsAt, subscriptionEndsAt *time.Time, now time.Time) bool {
	switch status {
	case model.StatusActive:
		return true
	case model.StatusTrial:
		return trialEndsAt == nil || trialEndsAt.After(now)
	case model.StatusPastDue:
		if subscriptionEndsAt == nil {
			return false
		}
		return now.Before(subscriptionEndsAt.Add(PastDueGracePeriod))
	case model.StatusCanceled:
		if subscriptionEndsAt == nil {
			return false
		}
		return subscriptionEndsAt.After(now)
	default:
		return false
	}
}

// StoreSubscriptionActive is IsSubscriptionActive applied to a store row.
func StoreSubscriptionActive(store *model.Store, now time.Time) bool {
	return IsSubscriptionActive(store.SubscriptionStatus, store.TrialEndsAt, store.SubscriptionEndsAt, now)
}

var transitions = map[model.SubscriptionStatus][]model.SubscriptionStatus{
	model.StatusTrial:    {model.StatusActive, model.StatusPastDue, model.StatusCanceled, model.StatusExpired},
	model.StatusActive:   {model.StatusPastDue, model.StatusCanceled, model.StatusPaused},
	model.StatusPastDue:  {model.StatusActive, model.StatusCanceled},
	model.StatusCanceled: {model.StatusActive, model.StatusExpired},
	model.StatusPaused:   {model.StatusActive, model.StatusCanceled},
	model.StatusExpired:  {model.StatusActive},
}

// CanTransition reports whether a subscription may move from one status to
// another. Staying in the same status is always allowed.
func CanTransition(from, to model.SubscriptionStatus) bool {
	if from == to {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type InvalidTransitionError struct {
	From model.SubscriptionStatus
	To   model.SubscriptionStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("subscription status cannot change from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Code() string { return "INVALID_STATUS_TRANSITION" }

// Transition moves store to status if the change is allowed.
func Transition(store *model.Store, to model.SubscriptionStatus) error {
	if !CanTransition(store.SubscriptionStatus, to) {
		return &InvalidTransitionError{From: store.SubscriptionStatus, To: to}
	}
	store.SubscriptionStatus = to
	return nil
}
