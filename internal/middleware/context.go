package middleware

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"storefront_backend/pkg/rbac"
	"storefront_backend/pkg/tenant"
	"storefront_backend/pkg/utils/jwt"
)

const (
	localsClaims  = "user"
	localsSession = "session"
	localsTenant  = "tenant"
	localsProduct = "product"
)

// SessionFrom returns the authenticated session, or nil.
func SessionFrom(c *fiber.Ctx) *rbac.Session {
	s, _ := c.Locals(localsSession).(*rbac.Session)
	return s
}

// ClaimsFrom returns the validated token claims, or nil.
func ClaimsFrom(c *fiber.Ctx) *jwt.Claims {
	claims, _ := c.Locals(localsClaims).(*jwt.Claims)
	return claims
}

// TenantFrom returns the store resolved from the Host header, or nil.
func TenantFrom(c *fiber.Ctx) *tenant.Resolution {
	res, _ := c.Locals(localsTenant).(*tenant.Resolution)
	return res
}

// StoreID returns the store a request acts on: the resolved tenant on
// storefront routes, otherwise the session's store. A SuperAdmin names the
// store with the store_id query parameter.
func StoreID(c *fiber.Ctx) (uint, error) {
	if res := TenantFrom(c); res != nil {
		return res.StoreID, nil
	}

	var requested *uint
	if raw := c.Query("store_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, fiber.NewError(fiber.StatusBadRequest, "invalid store_id")
		}
		v := uint(id)
		requested = &v
	}
	return rbac.StoreScope(SessionFrom(c), requested)
}
