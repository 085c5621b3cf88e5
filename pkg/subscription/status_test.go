package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"storefront_backend/internal/model"
)

func TestIsSubscriptionActive(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}
	day := 24 * time.Hour

	tests := []struct {
		name   string
		status model.SubscriptionStatus
		trial  *time.Time
		ends   *time.Time
		want   bool
	}{
		{"active without dates", model.StatusActive, nil, nil, true},
		{"active with past end", model.StatusActive, nil, at(-40 * day), true},
		{"trial without end", model.StatusTrial, nil, nil, true},
		{"trial in future", model.StatusTrial, at(3 * day), nil, true},
		{"trial ended", model.StatusTrial, at(-time.Minute), nil, false},
		{"past due 5 days", model.StatusPastDue, nil, at(-5 * day), true},
		{"past due 8 days", model.StatusPastDue, nil, at(-8 * day), false},
		{"past due without end", model.StatusPastDue, nil, nil, false},
		{"canceled until period end", model.StatusCanceled, nil, at(2 * day), true},
		{"canceled after period end", model.StatusCanceled, nil, at(-time.Second), false},
		{"paused", model.StatusPaused, nil, at(10 * day), false},
		{"expired", model.StatusExpired, nil, nil, false},
		{"unknown", model.SubscriptionStatus("BOGUS"), nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsSubscriptionActive(tt.status, tt.trial, tt.ends, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.SubscriptionStatus
		want     bool
	}{
		{model.StatusTrial, model.StatusActive, true},
		{model.StatusTrial, model.StatusPastDue, true},
		{model.StatusActive, model.StatusPastDue, true},
		{model.StatusPastDue, model.StatusActive, true},
		{model.StatusPastDue, model.StatusCanceled, true},
		{model.StatusActive, model.StatusActive, true},
		{model.StatusPaused, model.StatusPastDue, false},
		{model.StatusExpired, model.StatusPastDue, false},
		{model.StatusCanceled, model.StatusTrial, false},
		{model.StatusPastDue, model.StatusTrial, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransition(t *testing.T) {
	store := &model.Store{SubscriptionStatus: model.StatusPaused}

	err := Transition(store, model.StatusPastDue)
	var invalid *InvalidTransitionError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, model.StatusPaused, store.SubscriptionStatus)

	assert.NoError(t, Transition(store, model.StatusActive))
	assert.Equal(t, model.StatusActive, store.SubscriptionStatus)
}

func TestApplyPlan(t *testing.T) {
	store := &model.Store{}

	ApplyPlan(store, model.PlanBasic)
	assert.Equal(t, model.PlanBasic, store.Plan)
	assert.Equal(t, 100, store.ProductLimit)
	assert.Equal(t, 500, store.OrderLimit)

	ApplyPlan(store, model.Plan("GOLD"))
	assert.Equal(t, model.PlanFree, store.Plan)
	assert.Equal(t, 10, store.ProductLimit)
}

func TestCanUseFeature(t *testing.T) {
	assert.False(t, CanUseFeature(model.PlanFree, CustomDomain))
	assert.True(t, CanUseFeature(model.PlanBasic, CustomDomain))
	assert.True(t, CanUseFeature(model.PlanEnterprise, PrioritySupport))
	assert.False(t, CanUseFeature(model.Plan("GOLD"), CustomDomain))
}
