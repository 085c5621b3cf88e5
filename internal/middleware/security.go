package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/utils"

	"storefront_backend/internal/response"
	"storefront_backend/pkg/config"
)

// Security returns the header hardening and per-IP rate limiting handlers.
func Security(cfg config.RateLimitConfig) []fiber.Handler {
	return []fiber.Handler{
		helmet.New(),
		limiter.New(limiter.Config{
			Max:        cfg.Max,
			Expiration: cfg.Window,
			Next: func(c *fiber.Ctx) bool {
				// Webhooks and health checks are never rate limited.
				return c.Path() == "/api/webhook" || c.Path() == "/healthz"
			},
			LimitReached: func(c *fiber.Ctx) error {
				return response.Fail(c, fiber.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			},
		}),
	}
}

// StorefrontCSRF protects cookie-based storefront forms. Clients read the
// token from the csrf_ cookie and echo it in X-CSRF-Token.
func StorefrontCSRF(secure bool) fiber.Handler {
	return csrf.New(csrf.Config{
		KeyLookup:      "header:X-CSRF-Token",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   secure,
		Expiration:     time.Hour,
		KeyGenerator:   utils.UUIDv4,
		Next: func(c *fiber.Ctx) bool {
			// API clients authenticate with a bearer token instead of cookies.
			return bearerToken(c) != ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return response.Fail(c, fiber.StatusForbidden, response.CodeForbidden, "Invalid CSRF token")
		},
	})
}
