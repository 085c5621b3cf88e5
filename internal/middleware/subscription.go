package middleware

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/subscription"
)

// CheckProductLimit rejects the request once the store reached its product limit.
func CheckProductLimit(enforcer *subscription.Enforcer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := StoreID(c)
		if err != nil {
			return response.Error(c, err)
		}
		if err := enforcer.EnsureCanCreateProduct(c.UserContext(), storeID); err != nil {
			return response.Error(c, err)
		}
		return c.Next()
	}
}

// CheckOrderLimit rejects the request once the store reached this month's order limit.
func CheckOrderLimit(enforcer *subscription.Enforcer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := StoreID(c)
		if err != nil {
			return response.Error(c, err)
		}
		if err := enforcer.EnsureCanCreateOrder(c.UserContext(), storeID); err != nil {
			return response.Error(c, err)
		}
		return c.Next()
	}
}

// CheckFeatureAccess requires the store's plan to include feature.
func CheckFeatureAccess(db *gorm.DB, feature subscription.Feature) fiber.Handler {
	return func(c *fiber.Ctx) error {
		storeID, err := StoreID(c)
		if err != nil {
			return response.Error(c, err)
		}

		var store model.Store
		if err := db.WithContext(c.UserContext()).Select("id", "plan").First(&store, storeID).Error; err != nil {
			return response.Error(c, subscription.ErrStoreNotFound)
		}

		if !subscription.CanUseFeature(store.Plan, feature) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":   "This feature requires a higher subscription plan",
				"code":    "FEATURE_NOT_AVAILABLE",
				"feature": feature,
				"plan":    store.Plan,
			})
		}
		return c.Next()
	}
}
