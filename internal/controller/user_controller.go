package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"storefront_backend/internal/middleware"
	"storefront_backend/internal/model"
	"storefront_backend/internal/response"
	"storefront_backend/pkg/logger"
	"storefront_backend/pkg/rbac"
)

type UserInput struct {
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Name     string    `json:"name"`
	Role     rbac.Role `json:"role"`
}

type RoleInput struct {
	Role rbac.Role `json:"role"`
}

// UserController manages the members of a store.
type UserController struct {
	db *gorm.DB
}

func NewUserController(db *gorm.DB) *UserController {
	return &UserController{db: db}
}

// assignableRole checks that the session may hand out role inside a store.
// Nobody grants a role above their own and SuperAdmin is never store-bound.
func assignableRole(session *rbac.Session, role rbac.Role) error {
	if !role.Valid() || role == rbac.RoleSuperAdmin {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Role %q cannot be assigned", role))
	}
	if !rbac.HasRole(session.Role, role) {
		return &rbac.InsufficientRoleError{Have: session.Role, Need: role}
	}
	return nil
}

func (u *UserController) ListUsers(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}

	var users []model.User
	if err := u.db.WithContext(c.UserContext()).Where("store_id = ?", storeID).Order("id").Find(&users).Error; err != nil {
		return response.Error(c, err)
	}

	profiles := make([]map[string]interface{}, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].GetPublicProfile())
	}
	return c.JSON(fiber.Map{"users": profiles})
}

func (u *UserController) CreateUser(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	input := new(UserInput)
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
	if input.Role == "" {
		input.Role = rbac.RoleStaff
	}
	if err := assignableRole(middleware.SessionFrom(c), input.Role); err != nil {
		return response.Error(c, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return response.Error(c, fmt.Errorf("hash password: %w", err))
	}

	user := model.User{
		Email:    addr,
		Password: string(hashedPassword),
		Name:     strings.TrimSpace(input.Name),
		Role:     string(input.Role),
		StoreID:  &storeID,
	}
	err = u.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Unscoped().Where("email = ?", addr).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errEmailTaken
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, errEmailTaken) {
		return response.Fail(c, fiber.StatusConflict, response.CodeConflict, err.Error())
	}
	if err != nil {
		return response.Error(c, err)
	}

	logger.FromCtx(c).Info("store user created",
		zap.Uint("store_id", storeID),
		zap.Uint("user_id", user.ID),
		zap.String("role", user.Role))
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    user.GetPublicProfile(),
	})
}

func (u *UserController) UpdateRole(c *fiber.Ctx) error {
	storeID, err := middleware.StoreID(c)
	if err != nil {
		return response.Error(c, err)
	}
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "Invalid user id")
	}
	input := new(RoleInput)
	if err := c.BodyParser(input); err != nil {
		return response.BadRequest(c, "Invalid input")
	}

	session := middleware.SessionFrom(c)
	if session.UserID == uint(id) {
		return response.Fail(c, fiber.StatusForbidden, response.CodeForbidden, "You cannot change your own role")
	}
	if err := assignableRole(session, input.Role); err != nil {
		return response.Error(c, err)
	}

	var user model.User
	if err := u.db.WithContext(c.UserContext()).Where("id = ? AND store_id = ?", id, storeID).First(&user).Error; err != nil {
		return response.Error(c, err)
	}
	// Demoting someone ranked above the caller is a grant in reverse.
	if !rbac.HasRole(session.Role, rbac.Role(user.Role)) {
		return response.Error(c, &rbac.InsufficientRoleError{Have: session.Role, Need: rbac.Role(user.Role)})
	}

	if err := u.db.WithContext(c.UserContext()).Model(&user).Update("role", string(input.Role)).Error; err != nil {
		return response.Error(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Role updated successfully",
		"user":    user.GetPublicProfile(),
	})
}
