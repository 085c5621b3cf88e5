package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/internal/testdb"
)

const base = "example.app"

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, time.Minute), mr
}

func addDomain(t *testing.T, db *gorm.DB, storeID uint, host string, primary bool) *model.StoreDomain {
	t.Helper()
	d := &model.StoreDomain{StoreID: storeID, Hostname: host, IsPrimary: primary}
	require.NoError(t, db.Create(d).Error)
	return d
}

func TestResolveSubdomain(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo-store", model.PlanFree, 10, 50)
	r := NewResolver(db, base, nil, nil)

	res, err := r.ResolveStore(context.Background(), "Demo-Store.example.app:3000")
	require.NoError(t, err)
	assert.Equal(t, store.ID, res.StoreID)
	assert.Equal(t, "demo-store", res.Slug)
	assert.True(t, res.IsSubdomain)
	assert.Equal(t, "demo-store.example.app", res.PrimaryDomain)
	assert.False(t, res.NeedsCanonicalRedirect)
}

func TestResolveCustomDomain(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo-store", model.PlanPro, 1000, 5000)
	addDomain(t, db, store.ID, "shop.example.com", true)
	r := NewResolver(db, base, nil, nil)

	res, err := r.ResolveStore(context.Background(), "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, store.ID, res.StoreID)
	assert.False(t, res.IsSubdomain)
	assert.Equal(t, "shop.example.com", res.PrimaryDomain)
	assert.False(t, res.NeedsCanonicalRedirect)
}

func TestResolveSubdomainRedirectsToPrimary(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo-store", model.PlanPro, 1000, 5000)
	addDomain(t, db, store.ID, "alt.example.com", false)
	addDomain(t, db, store.ID, "shop.example.com", true)
	r := NewResolver(db, base, nil, nil)

	res, err := r.ResolveStore(context.Background(), "demo-store.example.app")
	require.NoError(t, err)
	assert.True(t, res.NeedsCanonicalRedirect)
	assert.Equal(t, "shop.example.com", res.PrimaryDomain)
	assert.Equal(t, "https://shop.example.com/products?page=2", res.CanonicalURL("", "/products?page=2"))

	// A secondary custom domain is served as-is.
	res, err = r.ResolveStore(context.Background(), "alt.example.com")
	require.NoError(t, err)
	assert.False(t, res.NeedsCanonicalRedirect)
}

func TestResolveNotFound(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "gone", model.PlanFree, 10, 50)
	domain := addDomain(t, db, store.ID, "old.example.com", true)
	require.NoError(t, db.Delete(domain).Error)
	testdb.CreateStore(t, db, "live", model.PlanFree, 10, 50)
	r := NewResolver(db, base, nil, nil)
	ctx := context.Background()

	for _, host := range []string{"", "example.app", "www.example.app", "missing.example.app", "unknown.com", "old.example.com", "a.live.example.app"} {
		_, err := r.ResolveStore(ctx, host)
		assert.ErrorIs(t, err, ErrStoreNotFound, host)
	}

	require.NoError(t, db.Delete(store).Error)
	_, err := r.ResolveStore(ctx, "gone.example.app")
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

func TestResolveUsesCache(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo-store", model.PlanFree, 10, 50)
	cache, mr := newRedisCache(t)
	r := NewResolver(db, base, cache, nil)
	ctx := context.Background()

	_, err := r.ResolveStore(ctx, "demo-store.example.app")
	require.NoError(t, err)
	assert.True(t, mr.Exists("tenant:host:demo-store.example.app"))

	// Served from the cache even though the row is gone.
	require.NoError(t, db.Delete(store).Error)
	res, err := r.ResolveStore(ctx, "demo-store.example.app")
	require.NoError(t, err)
	assert.Equal(t, store.ID, res.StoreID)

	require.NoError(t, r.InvalidateStore(ctx, store.ID))
	assert.False(t, mr.Exists("tenant:host:demo-store.example.app"))

	_, err = r.ResolveStore(ctx, "demo-store.example.app")
	assert.ErrorIs(t, err, ErrStoreNotFound)
	assert.False(t, mr.Exists("tenant:host:demo-store.example.app"))
}

func TestInvalidateAfterPrimaryChange(t *testing.T) {
	db := testdb.Open(t)
	store := testdb.CreateStore(t, db, "demo-store", model.PlanPro, 1000, 5000)
	cache, _ := newRedisCache(t)
	r := NewResolver(db, base, cache, nil)
	ctx := context.Background()

	res, err := r.ResolveStore(ctx, "demo-store.example.app")
	require.NoError(t, err)
	assert.False(t, res.NeedsCanonicalRedirect)

	addDomain(t, db, store.ID, "shop.example.com", true)
	require.NoError(t, r.InvalidateStore(ctx, store.ID))

	res, err = r.ResolveStore(ctx, "demo-store.example.app")
	require.NoError(t, err)
	assert.True(t, res.NeedsCanonicalRedirect)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	cache, mr := newRedisCache(t)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	want := &Resolution{StoreID: 3, Slug: "demo", Host: "shop.example.com", PrimaryDomain: "shop.example.com"}
	require.NoError(t, cache.Set(ctx, "shop.example.com", want))
	assert.Equal(t, time.Minute, mr.TTL("tenant:host:shop.example.com"))

	got, ok, err := cache.Get(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)

	require.NoError(t, cache.Delete(ctx, "shop.example.com"))
	_, ok, err = cache.Get(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreDomainIndexes(t *testing.T) {
	db := testdb.Open(t)
	first := testdb.CreateStore(t, db, "first", model.PlanPro, 1000, 5000)
	second := testdb.CreateStore(t, db, "second", model.PlanPro, 1000, 5000)

	taken := addDomain(t, db, first.ID, "shop.example.com", true)
	err := db.Create(&model.StoreDomain{StoreID: second.ID, Hostname: "shop.example.com"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	err = db.Create(&model.StoreDomain{StoreID: first.ID, Hostname: "alt.example.com", IsPrimary: true}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	addDomain(t, db, first.ID, "alt.example.com", false)

	require.NoError(t, db.Delete(taken).Error)
	moved := addDomain(t, db, second.ID, "shop.example.com", true)

	res, err := NewResolver(db, base, nil, nil).ResolveStore(context.Background(), "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, second.ID, res.StoreID)
	assert.Equal(t, moved.StoreID, res.StoreID)
}
