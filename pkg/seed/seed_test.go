package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storefront_backend/internal/model"
	"storefront_backend/internal/testdb"
	"storefront_backend/pkg/config"
)

func TestRunIsIdempotent(t *testing.T) {
	db := testdb.Open(t)
	platform := config.PlatformConfig{BaseDomain: "shop.test"}

	require.NoError(t, Run(db, platform, zap.NewNop()))
	require.NoError(t, Run(db, platform, zap.NewNop()))

	var stores, users, products int64
	require.NoError(t, db.Model(&model.Store{}).Count(&stores).Error)
	require.NoError(t, db.Model(&model.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&model.Product{}).Count(&products).Error)
	assert.Equal(t, int64(1), stores)
	assert.Equal(t, int64(2), users)
	assert.Equal(t, int64(len(demoProducts)), products)

	var store model.Store
	require.NoError(t, db.Where("slug = ?", DemoStoreSlug).First(&store).Error)
	assert.Equal(t, model.PlanBasic, store.Plan)
	assert.Equal(t, 100, store.ProductLimit)
}
