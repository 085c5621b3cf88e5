package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/rbac"
)

// RequirePermission checks the role matrix for the session.
func RequirePermission(resource rbac.Resource, action rbac.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := rbac.RequirePermission(SessionFrom(c), resource, action, nil); err != nil {
			return response.Error(c, err)
		}
		return c.Next()
	}
}

func RequireRole(role rbac.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := rbac.RequireRole(SessionFrom(c), role); err != nil {
			return response.Error(c, err)
		}
		return c.Next()
	}
}

func actionForMethod(method string) rbac.Action {
	switch method {
	case fiber.MethodPost:
		return rbac.ActionCreate
	case fiber.MethodPut, fiber.MethodPatch:
		return rbac.ActionUpdate
	case fiber.MethodDelete:
		return rbac.ActionDelete
	default:
		return rbac.ActionRead
	}
}

// CheckProductOwnership loads the product named by :id and verifies the
// session may act on it in its store. The product is kept in the locals for
// the handler.
func CheckProductOwnership(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return response.BadRequest(c, "Invalid product id")
		}

		var product model.Product
		if err := db.WithContext(c.UserContext()).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return response.NotFound(c, "Product not found")
			}
			return response.Error(c, err)
		}

		storeID := product.StoreID
		if err := rbac.RequirePermission(SessionFrom(c), rbac.ResourceProducts, actionForMethod(c.Method()), &storeID); err != nil {
			var denied *rbac.PermissionDeniedError
			if errors.As(err, &denied) && denied.CrossTenant {
				// Do not reveal other stores' products.
				return response.NotFound(c, "Product not found")
			}
			return response.Error(c, err)
		}

		c.Locals(localsProduct, &product)
		return c.Next()
	}
}

// ProductFrom returns the product loaded by CheckProductOwnership.
func ProductFrom(c *fiber.Ctx) *model.Product {
	p, _ := c.Locals(localsProduct).(*model.Product)
	return p
}
