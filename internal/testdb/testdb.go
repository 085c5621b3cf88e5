// Package testdb opens throwaway SQLite databases with the full schema for tests.
package testdb

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront_backend/internal/model"
)

var counter atomic.Int64

// Open returns an isolated in-memory database migrated with every model.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", counter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// CreateStore inserts an active store on plan with the given limits.
func CreateStore(t *testing.T, db *gorm.DB, slug string, plan model.Plan, productLimit, orderLimit int) *model.Store {
	t.Helper()

	store := &model.Store{
		Name:               slug,
		Slug:               slug,
		Plan:               plan,
		SubscriptionStatus: model.StatusActive,
		ProductLimit:       productLimit,
		OrderLimit:         orderLimit,
	}
	if err := db.Create(store).Error; err != nil {
		t.Fatalf("create store %s: %v", slug, err)
	}
	return store
}
