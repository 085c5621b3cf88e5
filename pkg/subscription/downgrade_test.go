package subscription

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/internal/testdb"
)

func createSubscribedStore(t *testing.T, db *gorm.DB, slug string, plan model.Plan, status model.SubscriptionStatus, trialEnds, subEnds *time.Time) *model.Store {
	t.Helper()
	store := &model.Store{Name: slug, Slug: slug, SubscriptionStatus: status, TrialEndsAt: trialEnds, SubscriptionEndsAt: subEnds}
	ApplyPlan(store, plan)
	require.NoError(t, db.Create(store).Error)
	return store
}

func ago(d time.Duration) *time.Time {
	ts := fixedNow.Add(-d)
	return &ts
}

func seedDowngradeCandidates(t *testing.T, db *gorm.DB) map[string]*model.Store {
	day := 24 * time.Hour
	return map[string]*model.Store{
		"trial-ended":    createSubscribedStore(t, db, "trial-ended", model.PlanPro, model.StatusTrial, ago(day), nil),
		"trial-running":  createSubscribedStore(t, db, "trial-running", model.PlanPro, model.StatusTrial, ago(-day), nil),
		"canceled-ended": createSubscribedStore(t, db, "canceled-ended", model.PlanBasic, model.StatusCanceled, nil, ago(time.Hour)),
		"past-due-10":    createSubscribedStore(t, db, "past-due-10", model.PlanBasic, model.StatusPastDue, nil, ago(10*day)),
		"past-due-31":    createSubscribedStore(t, db, "past-due-31", model.PlanPro, model.StatusPastDue, nil, ago(31*day)),
		"active-paid":    createSubscribedStore(t, db, "active-paid", model.PlanPro, model.StatusActive, nil, ago(day)),
		"free-trial":     createSubscribedStore(t, db, "free-trial", model.PlanFree, model.StatusTrial, ago(day), nil),
	}
}

func TestGetStoresForDowngrade(t *testing.T) {
	e, db := setupEnforcer(t)
	seedDowngradeCandidates(t, db)

	stores, err := e.GetStoresForDowngrade(context.Background(), fixedNow)
	require.NoError(t, err)

	var slugs []string
	for _, s := range stores {
		slugs = append(slugs, s.Slug)
	}
	assert.ElementsMatch(t, []string{"trial-ended", "canceled-ended", "past-due-31"}, slugs)
}

func TestDowngradeExpiredStores(t *testing.T) {
	e, db := setupEnforcer(t)
	ctx := context.Background()
	stores := seedDowngradeCandidates(t, db)

	report, err := e.DowngradeExpiredStores(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 3, report.Downgraded)
	assert.Equal(t, 0, report.Failed)

	var downgraded model.Store
	require.NoError(t, db.First(&downgraded, stores["trial-ended"].ID).Error)
	assert.Equal(t, model.PlanFree, downgraded.Plan)
	assert.Equal(t, model.StatusActive, downgraded.SubscriptionStatus)
	assert.Equal(t, 10, downgraded.ProductLimit)
	assert.Equal(t, 50, downgraded.OrderLimit)
	assert.Nil(t, downgraded.TrialEndsAt)

	var untouched model.Store
	require.NoError(t, db.First(&untouched, stores["past-due-10"].ID).Error)
	assert.Equal(t, model.PlanBasic, untouched.Plan)

	again, err := e.DowngradeExpiredStores(ctx, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Checked)
}

func TestDowngradeContinuesPastFailures(t *testing.T) {
	e, db := setupEnforcer(t)
	seedDowngradeCandidates(t, db)

	var calls atomic.Int32
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_first", func(tx *gorm.DB) {
		if calls.Add(1) == 1 {
			tx.AddError(errors.New("connection reset"))
		}
	}))

	report, err := e.DowngradeExpiredStores(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 2, report.Downgraded)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Results, 3)
	assert.False(t, report.Results[0].Succeeded())
	assert.True(t, report.Results[1].Succeeded())
	assert.True(t, report.Results[2].Succeeded())
}

func TestChangePlan(t *testing.T) {
	e, db := setupEnforcer(t)
	ctx := context.Background()
	store := testdb.CreateStore(t, db, "demo", model.PlanFree, 10, 50)

	updated, err := e.ChangePlan(ctx, store.ID, model.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, 1000, updated.ProductLimit)

	var reloaded model.Store
	require.NoError(t, db.First(&reloaded, store.ID).Error)
	assert.Equal(t, model.PlanPro, reloaded.Plan)
	assert.Equal(t, 5000, reloaded.OrderLimit)

	_, err = e.ChangePlan(ctx, store.ID, model.Plan("GOLD"))
	assert.ErrorIs(t, err, ErrUnknownPlan)

	_, err = e.ChangePlan(ctx, 999, model.PlanPro)
	assert.ErrorIs(t, err, ErrStoreNotFound)
}
