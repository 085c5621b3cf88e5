package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/importer"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/utils/validation"
)

type ProductInput struct {
	Name        *string              `json:"name"`
	SKU         *string              `json:"sku"`
	Description *string              `json:"description"`
	Price       *float64             `json:"price"`
	Currency    *string              `json:"currency"`
	Stock       *int                 `json:"stock"`
	Status      *model.ProductStatus `json:"status"`
}

// validate checks the fields that are set. create additionally requires
// name and price.
func (in *ProductInput) validate(create bool) string {
	if create && (in.Name == nil || in.Price == nil) {
		return "name and price are required"
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return "Product name cannot be empty"
	}
	if in.Price != nil && *in.Price < 0 {
		return "Price cannot be negative"
	}
	if in.Stock != nil && *in.Stock < 0 {
		return "Stock cannot be negative"
	}
	if in.Currency != nil && len(strings.TrimSpace(*in.Currency)) != 3 {
		return "Currency must be a 3 letter code"
	}
	if in.Status != nil && !in.Status.Valid() {
		return "Invalid product status"
	}
	return ""
}

type ProductController struct {
	db       *gorm.DB
	importer *importer.Importer
}

func NewProductController(db *gorm.DB, imp *importer.Importer) *ProductController {
	return &ProductController{db: db, importer: imp}
}

func (p *ProductController) ListProducts(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}

	pg := pageFrom(c)
	db := p.db.WithContext(c.UserContext()).Model(&model.Product{}).Where("store_id = ?", storeID)
	if status := c.Query("status"); status != "" {
		db = db.Where("status = ?", strings.ToUpper(status))
	}
	if q := strings.TrimSpace(c.Query("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

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

func (p *ProductController) GetProduct(c *fiber.Ctx) error {
	return c.JSON(middleware.ProductFrom(c))
}

// CreateProduct runs behind CheckProductLimit.
func (p *ProductController) CreateProduct(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	input := new(ProductInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}
	if msg := input.validate(true); msg != "" {
		return response.BadRequest(c, msg)
	}

	product := model.Product{
		StoreID: storeID,
		Name:    strings.TrimSpace(*input.Name),
		Price:   *input.Price,
	}
	if input.SKU != nil {
		product.SKU = strings.TrimSpace(*input.SKU)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Currency != nil {
		product.Currency = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.Stock != nil {
		product.Stock = *input.Stock
	}
	if input.Status != nil {
		product.Status = *input.Status
	}

	if err := p.db.WithContext(c.UserContext()).Create(&product).Error; err != nil {
		return response.Error(c, err)
	}

	logger.FromCtx(c).Info("product created", zap.Uint("store_id", storeID), zap.Uint("product_id", product.ID))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Product created successfully",
		"product": product,
	})
}

func (p *ProductController) UpdateProduct(c *fiber.Ctx) error {
	product := middleware.ProductFrom(c)
	input := new(ProductInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}
	if msg := input.validate(false); msg != "" {
		return response.BadRequest(c, msg)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.SKU != nil {
		updates["sku"] = strings.TrimSpace(*input.SKU)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		updates["price"] = *input.Price
	}
	if input.Currency != nil {
		updates["currency"] = strings.ToUpper(strings.TrimSpace(*input.Currency))
	}
	if input.Stock != nil {
		updates["stock"] = *input.Stock
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if len(updates) == 0 {
		return response.BadRequest(c, "Nothing to update")
	}

	if err := p.db.WithContext(c.UserContext()).Model(product).Updates(updates).Error; err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct soft-deletes the product, which frees a slot of the product limit.
func (p *ProductController) DeleteProduct(c *fiber.Ctx) error {
	product := middleware.ProductFrom(c)
	if err := p.db.WithContext(c.UserContext()).Delete(product).Error; err != nil {
		return response.Error(c, err)
	}

	logger.FromCtx(c).Info("product deleted", zap.Uint("store_id", product.StoreID), zap.Uint("product_id", product.ID))
	return c.JSON(fiber.Map{
		"message": "Product deleted successfully",
	})
}

// ImportProducts creates products from an uploaded xlsx sheet (form field
// "file"). Rows past the product limit are reported as skipped.
func (p *ProductController) ImportProducts(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, validation.ErrFileRequired.Error())
	}
	if err := validation.ValidateSpreadsheet(file); err != nil {
		return response.BadRequest(c, err.Error())
	}

	src, err := file.Open()
	if err != nil {
		return response.Error(c, err)
	}
	defer src.Close()

	result, err := p.importer.ImportProducts(c.UserContext(), storeID, src)
	if err != nil {
		if errors.Is(err, importer.ErrUnreadable) || errors.Is(err, importer.ErrEmptySheet) ||
			errors.Is(err, importer.ErrMissingColumn) || errors.Is(err, importer.ErrTooManyRows) {
			return response.BadRequest(c, err.Error())
		}
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Import finished",
		"result":  result,
	})
}
