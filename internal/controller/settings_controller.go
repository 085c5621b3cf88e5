package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/subscription"
	"storefront_backend/pkg/tenant"
	"storefront_backend/pkg/utils/cloudflare"
)

type StoreUpdateInput struct {
	Name     *string         `json:"name"`
	Settings json.RawMessage `json:"settings"`
}

type PlanInput struct {
	Plan model.Plan `json:"plan"`
}

type LimitsInput struct {
	ProductLimit *int `json:"product_limit"`
	OrderLimit   *int `json:"order_limit"`
}

// StoreController serves the store settings and the SuperAdmin store
// management endpoints.
type StoreController struct {
	db       *gorm.DB
	enforcer *subscription.Enforcer
	resolver *tenant.Resolver
	uploader *cloudflare.Uploader
}

// NewStoreController wires the controller. uploader may be nil when object
// storage is not configured.
func NewStoreController(db *gorm.DB, enforcer *subscription.Enforcer, resolver *tenant.Resolver, uploader *cloudflare.Uploader) *StoreController {
	return &StoreController{db: db, enforcer: enforcer, resolver: resolver, uploader: uploader}
}

func (s *StoreController) loadStore(c *fiber.Ctx) (*model.Store, error) {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return nil, err
	}
	var store model.Store
	err = s.db.WithContext(c.UserContext()).Preload("Domains").First(&store, storeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, subscription.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	return &store, nil
}

func (s *StoreController) GetStore(c *fiber.Ctx) error {
	store, err := s.loadStore(c)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"store":               store,
		"subscription_active": subscription.StoreSubscriptionActive(store, timeNow()),
		"plan":                subscription.LimitsFor(store.Plan),
	})
}

func (s *StoreController) UpdateStore(c *fiber.Ctx) error {
	input := new(StoreUpdateInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	store, err := s.loadStore(c)
	if err != nil {
		return response.Error(c, err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return response.BadRequest(c, "Store name cannot be empty")
		}
		updates["name"] = name
	}
	if len(input.Settings) > 0 {
		var obj map[string]interface{}
		if err := json.Unmarshal(input.Settings, &obj); err != nil {
			return response.BadRequest(c, "Settings must be a JSON object")
		}
		updates["settings"] = datatypes.JSON(input.Settings)
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "Nothing to update")
	}

	if err := s.db.WithContext(c.UserContext()).Model(store).Updates(updates).Error; err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Store updated successfully",
		"store":   store,
	})
}

// ListStores returns every store. SuperAdmin only.
func (s *StoreController) ListStores(c *fiber.Ctx) error {
	p := pageFrom(c)
	db := s.db.WithContext(c.UserContext()).Model(&model.Store{})
	if plan := c.Query("plan"); plan != "" {
		db = db.Where("plan = ?", strings.ToUpper(plan))
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Error(c, err)
	}

	var stores []model.Store
	if err := p.scope(db).Preload("Domains").Order("id").Find(&stores).Error; err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"stores":     stores,
		"pagination": p.meta(total),
	})
}

// DeleteStore soft-deletes a store. Its hosts stop resolving immediately.
func (s *StoreController) DeleteStore(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid store id")
	}

	result := s.db.WithContext(c.UserContext()).Delete(&model.Store{}, id)
	if result.Error != nil {
		return response.Error(c, result.Error)
	}
	if result.RowsAffected == 0 {
		return response.Error(c, subscription.ErrStoreNotFound)
	}

	if err := s.resolver.InvalidateStore(c.UserContext(), uint(id)); err != nil {
		logger.FromCtx(c).Warn("could not invalidate store hosts", zap.Int("store_id", id), zap.Error(err))
	}
	logger.FromCtx(c).Info("store deleted", zap.Int("store_id", id))

	return c.JSON(fiber.Map{
		"message": "Store deleted successfully",
	})
}

// ChangePlan moves a store to another plan without going through billing.
// SuperAdmin only.
func (s *StoreController) ChangePlan(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid store id")
	}
	input := new(PlanInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	store, err := s.enforcer.ChangePlan(c.UserContext(), uint(id), model.Plan(strings.ToUpper(string(input.Plan))))
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Plan updated successfully",
		"store":   store,
	})
}

// ChangeLimits overrides a store's limits. -1 means unlimited. SuperAdmin only.
func (s *StoreController) ChangeLimits(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid store id")
	}
	input := new(LimitsInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}
	if input.ProductLimit == nil || input.OrderLimit == nil {
		return response.BadRequest(c, "product_limit and order_limit are required")
	}
	if *input.ProductLimit < model.Unlimited || *input.OrderLimit < model.Unlimited {
		return response.BadRequest(c, "Limits must be -1 or greater")
	}

	store, err := s.enforcer.ChangeLimits(c.UserContext(), uint(id), *input.ProductLimit, *input.OrderLimit)
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Limits updated successfully",
		"store":   store,
	})
}
