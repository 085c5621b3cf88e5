package middleware

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront_backend/internal/response"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/tenant"
)

// ResolveTenant maps the Host header to a store. X-Forwarded-Host is only
// honoured from the app's trusted proxies. Unknown hosts get 404, a
// store reached on its subdomain while it has a primary custom domain gets a
// permanent redirect there. The store is exposed to handlers through locals
// and the X-Store-Id and X-Forwarded-Host request headers.
func ResolveTenant(resolver *tenant.Resolver, scheme string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		host := c.Hostname()

		res, err := resolver.ResolveStore(c.UserContext(), host)
		if errors.Is(err, tenant.ErrStoreNotFound) {
			return response.Fail(c, fiber.StatusNotFound, response.CodeStoreNotFound, "Store not found")
		}
		if err != nil {
			logger.FromCtx(c).Error("tenant resolution failed", zap.String("host", host), zap.Error(err))
			return response.Fail(c, fiber.StatusInternalServerError, response.CodeInternal, "Could not resolve store")
		}

		if res.NeedsCanonicalRedirect {
			return c.Redirect(res.CanonicalURL(scheme, c.OriginalURL()), fiber.StatusPermanentRedirect)
		}

		c.Request().Header.Set("X-Store-Id", strconv.FormatUint(uint64(res.StoreID), 10))
		c.Request().Header.Set("X-Forwarded-Host", res.Host)
		c.Locals(localsTenant, res)
		return c.Next()
	}
}
