package controller

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"storefront_backend/internal/response"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/utils/image"
	"storefront_backend/pkg/utils/validation"
)

// UploadLogo re-encodes the uploaded image as WebP, stores it in R2 and
// replaces the store's previous logo.
func (s *StoreController) UploadLogo(c *fiber.Ctx) error {
	if s.uploader == nil {
		return response.Fail(c, fiber.StatusServiceUnavailable, response.CodeUnavailable, "File uploads are not configured")
	}

	store, err := s.loadStore(c)
	if err != nil {
		return response.Error(c, err)
	}

	file, err := c.FormFile("logo")
	if err != nil {
		return response.BadRequest(c, "No file uploaded")
	}
	if err := validation.ValidateImage(file); err != nil {
		return response.BadRequest(c, err.Error())
	}

	src, err := file.Open()
	if err != nil {
		return response.BadRequest(c, "Could not read file")
	}
	defer src.Close()

	buf, ext, contentType, err := image.ToWebP(src)
	if err != nil {
		return response.BadRequest(c, "Could not process image")
	}

	log := logger.FromCtx(c)
	result, err := s.uploader.UploadStoreLogo(c.UserContext(), store.Slug, buf, ext, contentType)
	if err != nil {
		log.Error("logo upload failed", zap.Uint("store_id", store.ID), zap.Error(err))
		return response.Fail(c, fiber.StatusBadGateway, "UPLOAD_FAILED", "Could not upload logo")
	}

	previous := store.LogoURL
	if err := s.db.WithContext(c.UserContext()).Model(store).Update("logo_url", result.URL).Error; err != nil {
		return response.Error(c, err)
	}
	if previous != "" {
		if err := s.uploader.Delete(c.UserContext(), previous); err != nil {
			log.Warn("could not delete previous logo", zap.String("url", previous), zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"message":  "Logo uploaded successfully",
		"logo_url": result.URL,
	})
}
