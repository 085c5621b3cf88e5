// Package seed fills a development database with a SuperAdmin and a demo store.
package seed

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/pkg/config"
	"storefront_backend/pkg/rbac"
	"storefront_backend/pkg/subscription"
)

const (
	DemoStoreSlug   = "demo"
	defaultPassword = "changeme123"
)

var demoProducts = []model.Product{
	{Name: "Classic T-Shirt", SKU: "TS-001", Price: 19.99, Currency: "USD", Stock: 100, Status: model.ProductStatusActive},
	{Name: "Canvas Tote Bag", SKU: "TB-001", Price: 14.50, Currency: "USD", Stock: 40, Status: model.ProductStatusActive},
	{Name: "Enamel Mug", SKU: "MG-001", Price: 9.00, Currency: "USD", Stock: 0, Status: model.ProductStatusDraft},
}

func seedPassword() string {
	if p := os.Getenv("SEED_PASSWORD"); p != "" {
		return p
	}
	return defaultPassword
}

// Run is idempotent: existing rows are left alone.
func Run(db *gorm.DB, platform config.PlatformConfig, log *zap.Logger) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(seedPassword()), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	admin := model.User{
		Email:    "admin@" + platform.BaseDomain,
		Password: string(hashed),
		Name:     "Platform Admin",
		Role:     string(rbac.RoleSuperAdmin),
	}
	if err := db.Where(model.User{Email: admin.Email}).FirstOrCreate(&admin).Error; err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}

	store := model.Store{
		Name:               "Demo Store",
		Slug:               DemoStoreSlug,
		OwnerEmail:         "owner@" + platform.BaseDomain,
		SubscriptionStatus: model.StatusActive,
	}
	subscription.ApplyPlan(&store, model.PlanBasic)
	if err := db.Where(model.Store{Slug: DemoStoreSlug}).FirstOrCreate(&store).Error; err != nil {
		return fmt.Errorf("seed demo store: %w", err)
	}

	owner := model.User{
		Email:    store.OwnerEmail,
		Password: string(hashed),
		Name:     "Demo Owner",
		Role:     string(rbac.RoleStoreAdmin),
		StoreID:  &store.ID,
	}
	if err := db.Where(model.User{Email: owner.Email}).FirstOrCreate(&owner).Error; err != nil {
		return fmt.Errorf("seed demo owner: %w", err)
	}

	for _, p := range demoProducts {
		p.StoreID = store.ID
		if err := db.Where(model.Product{StoreID: store.ID, SKU: p.SKU}).FirstOrCreate(&p).Error; err != nil {
			return fmt.Errorf("seed product %s: %w", p.SKU, err)
		}
	}

	log.Info("development data seeded",
		zap.String("admin", admin.Email),
		zap.String("store", store.SubdomainHost(platform.BaseDomain)))
	return nil
}
