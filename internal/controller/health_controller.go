package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"storefront_backend/internal/response"
)

type HealthController struct {
	db *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

func (h *HealthController) Health(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return response.Fail(c, fiber.StatusServiceUnavailable, response.CodeUnavailable, "database unavailable")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return response.Fail(c, fiber.StatusServiceUnavailable, response.CodeUnavailable, "database unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
