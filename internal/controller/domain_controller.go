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
	"storefront_backend/pkg/tenant"
)

var errHostnameTaken = errors.New("hostname is already connected to a store")

type DomainInput struct {
	Hostname  string `json:"hostname"`
	IsPrimary bool   `json:"is_primary"`
}

// DomainController manages the custom domains of a store.
type DomainController struct {
	db       *gorm.DB
	resolver *tenant.Resolver
}

func NewDomainController(db *gorm.DB, resolver *tenant.Resolver) *DomainController {
	return &DomainController{db: db, resolver: resolver}
}

func (d *DomainController) invalidate(c *fiber.Ctx, storeID uint) {
	if err := d.resolver.InvalidateStore(c.UserContext(), storeID); err != nil {
		logger.FromCtx(c).Warn("could not invalidate store hosts", zap.Uint("store_id", storeID), zap.Error(err))
	}
}

func (d *DomainController) ListDomains(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var domains []model.StoreDomain
	if err := d.db.WithContext(c.UserContext()).Where("store_id = ?", storeID).Order("id").Find(&domains).Error; err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"domains": domains})
}

// AddDomain connects a custom hostname to the store. A hostname can belong to
// one live store only.
func (d *DomainController) AddDomain(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	input := new(DomainInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	hostname, err := tenant.ValidateCustomHostname(input.Hostname, d.resolver.BaseDomain())
	if err != nil {
		return response.Error(c, err)
	}

	domain := model.StoreDomain{StoreID: storeID, Hostname: hostname, IsPrimary: input.IsPrimary}
	err = d.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.StoreDomain{}).Where("hostname = ?", hostname).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errHostnameTaken
		}
		if domain.IsPrimary {
			if err := clearPrimary(tx, storeID); err != nil {
				return err
			}
		}
		return tx.Create(&domain).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		err = errHostnameTaken
	}
	if errors.Is(err, errHostnameTaken) {
		return response.Fail(c, fiber.StatusConflict, response.CodeConflict, err.Error())
	}
	if err != nil {
		return response.Error(c, err)
	}

	d.invalidate(c, storeID)
	logger.FromCtx(c).Info("custom domain added",
		zap.Uint("store_id", storeID),
		zap.String("hostname", hostname),
		zap.Bool("primary", domain.IsPrimary))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Domain added successfully",
		"domain":  domain,
	})
}

func clearPrimary(tx *gorm.DB, storeID uint) error {
	return tx.Model(&model.StoreDomain{}).
		Where("store_id = ? AND is_primary = ?", storeID, true).
		Update("is_primary", false).Error
}

func (d *DomainController) findDomain(c *fiber.Ctx, storeID uint) (*model.StoreDomain, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid domain id")
	}
	var domain model.StoreDomain
	if err := d.db.WithContext(c.UserContext()).Where("id = ? AND store_id = ?", id, storeID).First(&domain).Error; err != nil {
		return nil, err
	}
	return &domain, nil
}

// SetPrimary makes the domain the store's canonical host. Visits on the
// platform subdomain are redirected to it from then on.
func (d *DomainController) SetPrimary(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	domain, err := d.findDomain(c, storeID)
	if err != nil {
		return response.Error(c, err)
	}

	err = d.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		if err := clearPrimary(tx, storeID); err != nil {
			return err
		}
		return tx.Model(domain).Update("is_primary", true).Error
	})
	if err != nil {
		return response.Error(c, err)
	}

	d.invalidate(c, storeID)
	return c.JSON(fiber.Map{
		"message": "Primary domain updated",
		"domain":  domain,
	})
}

func (d *DomainController) RemoveDomain(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	domain, err := d.findDomain(c, storeID)
	if err != nil {
		return response.Error(c, err)
	}

	if err := d.db.WithContext(c.UserContext()).Delete(domain).Error; err != nil {
		return response.Error(c, err)
	}

	d.invalidate(c, storeID)
	logger.FromCtx(c).Info("custom domain removed", zap.Uint("store_id", storeID), zap.String("hostname", domain.Hostname))
	return c.JSON(fiber.Map{
		"message": "Domain removed successfully",
	})
}
