package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/subscription"
)

// StorefrontController serves the public pages of the store resolved from
// the request host.
type StorefrontController struct {
	db *gorm.DB
}

func NewStorefrontController(db *gorm.DB) *StorefrontController {
	return &StorefrontController{db: db}
}

func (s *StorefrontController) GetStore(c *fiber.Ctx) error {
	res := middleware.TenantFrom(c)

	var store model.Store
	err := s.db.WithContext(c.UserContext()).First(&store, res.StoreID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.Error(c, subscription.ErrStoreNotFound)
	}
	if err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"name":     store.Name,
		"slug":     store.Slug,
		"logo_url": store.LogoURL,
		"settings": store.Settings,
		"host":     res.PrimaryDomain,
	})
}

func (s *StorefrontController) ListProducts(c *fiber.Ctx) error {
	res := middleware.TenantFrom(c)

	pg := pageFrom(c)
	db := s.db.WithContext(c.UserContext()).Model(&model.Product{}).
		Where("store_id = ? AND status = ?", res.StoreID, model.ProductStatusActive)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return response.Error(c, err)
	}

	var products []model.Product
	if err := pg.scope(db).Order("id DESC").Find(&products).Error; err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"products":   products,
		"pagination": pg.meta(total),
	})
}

func (s *StorefrontController) GetProduct(c *fiber.Ctx) error {
	res := middleware.TenantFrom(c)

	var product model.Product
	err := s.db.WithContext(c.UserContext()).
		Where("store_id = ? AND slug = ? AND status = ?", res.StoreID, c.Params("slug"), model.ProductStatusActive).
		First(&product).Error
	if err != nil {
		return response.Error(c, err)
	}
	return c.JSON(product)
}

// PlaceOrder checks out a cart. Runs behind CheckOrderLimit; signed-in
// shoppers get the order linked to their account.
func (s *StorefrontController) PlaceOrder(c *fiber.Ctx) error {
	res := middleware.TenantFrom(c)
	input := new(OrderInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	var customerID *uint
	if session := middleware.SessionFrom(c); session != nil {
		id := session.UserID
		customerID = &id
	}

	order, err := placeOrder(c.UserContext(), s.db, res.StoreID, customerID, input, true)
	if err != nil {
		return response.Error(c, err)
	}

	logger.FromCtx(c).Info("storefront order placed",
		zap.Uint("store_id", res.StoreID),
		zap.String("number", order.Number),
		zap.Float64("total", order.Total))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order placed successfully",
		"order":   order,
	})
}
