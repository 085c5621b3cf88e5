// Package response maps domain errors to JSON error bodies.
package response

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/pkg/billing"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/rbac"
	"storefront_backend/pkg/subscription"
	"storefront_backend/pkg/tenant"
)

const (
	CodeStoreNotFound = "STORE_NOT_FOUND"
	CodeNotFound      = "NOT_FOUND"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeBadRequest    = "BAD_REQUEST"
	CodeConflict      = "CONFLICT"
	CodeInternal      = "INTERNAL_ERROR"
	CodeUnavailable   = "SERVICE_UNAVAILABLE"
)

// Fail writes {"error": message, "code": code} with status.
func Fail(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"code":  code,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusBadRequest, CodeBadRequest, message)
}

func NotFound(c *fiber.Ctx, message string) error {
	return Fail(c, fiber.StatusNotFound, CodeNotFound, message)
}

// Error writes the HTTP form of err. Unknown errors are logged and hidden
// behind a 500.
func Error(c *fiber.Ctx, err error) error {
	var (
		denied       *rbac.PermissionDeniedError
		insufficient *rbac.InsufficientRoleError
		limit        *subscription.LimitExceededError
		transition   *subscription.InvalidTransitionError
		fiberErr     *fiber.Error
	)

	switch {
	case errors.Is(err, tenant.ErrStoreNotFound), errors.Is(err, subscription.ErrStoreNotFound):
		return Fail(c, fiber.StatusNotFound, CodeStoreNotFound, "Store not found")
	case errors.Is(err, rbac.ErrUnauthenticated):
		return Fail(c, fiber.StatusUnauthorized, CodeUnauthorized, "Authentication required")
	case errors.Is(err, rbac.ErrNoStoreAssigned):
		return Fail(c, fiber.StatusForbidden, CodeForbidden, err.Error())
	case errors.As(err, &denied):
		return Fail(c, fiber.StatusForbidden, denied.Code(), denied.Error())
	case errors.As(err, &insufficient):
		return Fail(c, fiber.StatusForbidden, insufficient.Code(), insufficient.Error())
	case errors.As(err, &limit):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error":   limit.Error(),
			"code":    limit.Code(),
			"limit":   limit.Limit,
			"current": limit.Current,
		})
	case errors.As(err, &transition):
		return Fail(c, fiber.StatusBadRequest, transition.Code(), transition.Error())
	case errors.Is(err, subscription.ErrUnknownPlan):
		return Fail(c, fiber.StatusBadRequest, "INVALID_PLAN", err.Error())
	case errors.Is(err, billing.ErrPlanNotPurchasable):
		return Fail(c, fiber.StatusBadRequest, "INVALID_PLAN", err.Error())
	case errors.Is(err, billing.ErrNoSubscription):
		return Fail(c, fiber.StatusBadRequest, "NO_SUBSCRIPTION", err.Error())
	case errors.Is(err, billing.ErrNotConfigured):
		return Fail(c, fiber.StatusServiceUnavailable, CodeUnavailable, err.Error())
	case errors.Is(err, tenant.ErrInvalidHostname), errors.Is(err, tenant.ErrPlatformHostname):
		return Fail(c, fiber.StatusBadRequest, "INVALID_HOSTNAME", err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Fail(c, fiber.StatusNotFound, CodeNotFound, "Resource not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Fail(c, fiber.StatusConflict, CodeConflict, "Resource already exists")
	case errors.As(err, &fiberErr):
		return Fail(c, fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message)
	}

	logger.FromCtx(c).Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return Fail(c, fiber.StatusInternalServerError, CodeInternal, "Internal server error")
}

// ErrorHandler is the application-wide Fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return Error(c, err)
}

func codeForStatus(status int) string {
	switch {
	case status >= 500:
		return CodeInternal
	case status == fiber.StatusNotFound:
		return CodeNotFound
	case status == fiber.StatusConflict:
		return CodeConflict
	case status == fiber.StatusForbidden:
		return CodeForbidden
	case status == fiber.StatusUnauthorized:
		return CodeUnauthorized
	case status == fiber.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	return CodeBadRequest
}
