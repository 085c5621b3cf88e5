package controller

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/config"
	"storefront_backend/pkg/email"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/rbac"
	"storefront_backend/pkg/subscription"
	"storefront_backend/pkg/tenant"
	"storefront_backend/pkg/utils/jwt"
)

const minPasswordLength = 8

var reservedSlugs = map[string]bool{
	"www": true, "api": true, "admin": true, "app": true, "mail": true, "static": true,
}

var (
	errEmailTaken = errors.New("email already exists")
	errSlugTaken  = errors.New("store address is already taken")
)

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	StoreName string `json:"store_name"`
	StoreSlug string `json:"store_slug"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthController struct {
	db       *gorm.DB
	tokens   *jwt.Manager
	notifier email.Notifier
	platform config.PlatformConfig
}

func NewAuthController(db *gorm.DB, tokens *jwt.Manager, notifier email.Notifier, platform config.PlatformConfig) *AuthController {
	if notifier == nil {
		notifier = email.Nop{}
	}
	return &AuthController{db: db, tokens: tokens, notifier: notifier, platform: platform}
}

func normalizeEmail(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", false
	}
	return s, true
}

// storeSlug derives the subdomain label for a new store.
func (a *AuthController) storeSlug(input *RegisterInput) (string, error) {
	raw := input.StoreSlug
	if raw == "" {
		raw = input.StoreName
	}
	s := slug.Make(raw)
	if len(s) < 3 || len(s) > 63 || reservedSlugs[s] {
		return "", fmt.Errorf("store address %q is not available", s)
	}
	if _, ok := tenant.ExtractSubdomain(s+"."+a.platform.BaseDomain, a.platform.BaseDomain); !ok {
		return "", fmt.Errorf("store address %q is not available", s)
	}
	return s, nil
}

// Register onboards a new merchant: it creates the store on a trial of the
// configured plan and its first StoreAdmin.
func (a *AuthController) Register(c *fiber.Ctx) error {
	input := new(RegisterInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	addr, ok := normalizeEmail(input.Email)
	if !ok {
		return response.BadRequest(c, "A valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return response.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(input.StoreName) == "" {
		return response.BadRequest(c, "Store name is required")
	}
	storeSlug, err := a.storeSlug(input)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return response.Error(c, fmt.Errorf("hash password: %w", err))
	}

	trialPlan := model.Plan(a.platform.TrialPlan)
	if !trialPlan.Valid() {
		trialPlan = model.PlanPro
	}
	trialEnds := timeNow().AddDate(0, 0, a.platform.TrialDays)

	store := model.Store{
		Name:               strings.TrimSpace(input.StoreName),
		Slug:               storeSlug,
		OwnerEmail:         addr,
		SubscriptionStatus: model.StatusTrial,
		TrialEndsAt:        &trialEnds,
	}
	subscription.ApplyPlan(&store, trialPlan)

	var user model.User
	err = a.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Unscoped().Where("email = ?", addr).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errEmailTaken
		}
		if err := tx.Model(&model.Store{}).Unscoped().Where("slug = ?", storeSlug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errSlugTaken
		}

		if err := tx.Create(&store).Error; err != nil {
			return err
		}
		user = model.User{
			Email:    addr,
			Password: string(hashedPassword),
			Name:     strings.TrimSpace(input.Name),
			Role:     string(rbac.RoleStoreAdmin),
			StoreID:  &store.ID,
		}
		return tx.Create(&user).Error
	})
	switch {
	case errors.Is(err, errEmailTaken), errors.Is(err, errSlugTaken):
		return response.Fail(c, fiber.StatusConflict, response.CodeConflict, err.Error())
	case err != nil:
		return response.Error(c, err)
	}

	token, err := a.tokens.GenerateToken(user.ID, user.Email, user.Role, user.StoreID)
	if err != nil {
		return response.Error(c, fmt.Errorf("generate token: %w", err))
	}

	log := logger.FromCtx(c)
	log.Info("store onboarded",
		zap.Uint("store_id", store.ID),
		zap.String("slug", store.Slug),
		zap.String("plan", string(store.Plan)))

	err = a.notifier.SendWelcomeEmail(addr, email.WelcomeEmailData{
		StoreName:   store.Name,
		StoreURL:    a.platform.Scheme + "://" + store.SubdomainHost(a.platform.BaseDomain),
		PlanName:    subscription.LimitsFor(store.Plan).Name,
		TrialEndsAt: store.TrialEndsAt,
	})
	if err != nil {
		log.Warn("could not send welcome email", zap.Error(err))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful",
		"token":   token,
		"user":    user.GetPublicProfile(),
		"store":   store,
	})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	var user model.User
	if err := a.db.WithContext(c.UserContext()).Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return response.Fail(c, fiber.StatusUnauthorized, response.CodeUnauthorized, "Invalid credentials")
	}

	token, err := a.tokens.GenerateToken(user.ID, user.Email, user.Role, user.StoreID)
	if err != nil {
		return response.Error(c, fmt.Errorf("generate token: %w", err))
	}

	entry := model.LoginHistory{UserID: user.ID, Device: truncate(c.Get(fiber.HeaderUserAgent), 255), IP: c.IP()}
	if err := a.db.WithContext(c.UserContext()).Create(&entry).Error; err != nil {
		logger.FromCtx(c).Warn("could not record login", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user":  user.GetPublicProfile(),
	})
}

// GetMe returns the signed-in user with their store and effective permissions.
func (a *AuthController) GetMe(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if session == nil {
		return response.Error(c, rbac.ErrUnauthenticated)
	}

	var user model.User
	if err := a.db.WithContext(c.UserContext()).Preload("Store").First(&user, session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NotFound(c, "User not found")
		}
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"user":        user.GetPublicProfile(),
		"store":       user.Store,
		"permissions": rbac.PermissionsFor(rbac.Role(user.Role)),
	})
}

const loginHistoryLimit = 10

// GetLoginHistory lists the signed-in user's most recent logins.
func (a *AuthController) GetLoginHistory(c *fiber.Ctx) error {
	session := middleware.SessionFrom(c)
	if session == nil {
		return response.Error(c, rbac.ErrUnauthenticated)
	}

	var entries []model.LoginHistory
	if err := a.db.WithContext(c.UserContext()).
		Where("user_id = ?", session.UserID).
		Order("created_at DESC, id DESC").
		Limit(loginHistoryLimit).
		Find(&entries).Error; err != nil {
		return response.Error(c, err)
	}
	return c.JSON(fiber.Map{"logins": entries})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
