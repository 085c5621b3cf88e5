package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/rbac"
	"storefront_backend/pkg/utils/jwt"
)

var errAccountRevoked = errors.New("account or store no longer exists")

func bearerToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// currentGrant reads the user's role and store binding from the database, so
// a demotion or a deleted store takes effect before the token expires.
func currentGrant(ctx context.Context, db *gorm.DB, userID uint) (rbac.Role, *uint, error) {
	var user model.User
	err := db.WithContext(ctx).Select("id", "role", "store_id").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, errAccountRevoked
	}
	if err != nil {
		return "", nil, err
	}
	if user.StoreID != nil {
		var count int64
		if err := db.WithContext(ctx).Model(&model.Store{}).Where("id = ?", *user.StoreID).Count(&count).Error; err != nil {
			return "", nil, err
		}
		if count == 0 {
			return "", nil, errAccountRevoked
		}
	}
	return rbac.Role(user.Role), user.StoreID, nil
}

func setSession(c *fiber.Ctx, claims *jwt.Claims, role rbac.Role, storeID *uint) {
	c.Locals(localsClaims, claims)
	c.Locals(localsSession, &rbac.Session{
		UserID:  claims.UserID,
		Role:    role,
		StoreID: storeID,
	})
}

// AuthMiddleware requires a valid Bearer token for a live account and stores
// the session.
func AuthMiddleware(tokens *jwt.Manager, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Missing authorization token")
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Invalid or expired token")
		}

		role, storeID, err := currentGrant(c.UserContext(), db, claims.UserID)
		if errors.Is(err, errAccountRevoked) {
			return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Invalid or expired token")
		}
		if err != nil {
			return response.Error(c, err)
		}

		setSession(c, claims, role, storeID)
		return c.Next()
	}
}

// OptionalAuth stores the session when a valid token for a live account is
// present and lets anonymous requests through.
func OptionalAuth(tokens *jwt.Manager, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}
		claims, err := tokens.ValidateToken(token)
		if err != nil {
			return c.Next()
		}
		role, storeID, err := currentGrant(c.UserContext(), db, claims.UserID)
		if errors.Is(err, errAccountRevoked) {
			return c.Next()
		}
		if err != nil {
			return response.Error(c, err)
		}
		setSession(c, claims, role, storeID)
		return c.Next()
	}
}
