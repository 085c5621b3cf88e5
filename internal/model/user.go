package model

import (
	"strings"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	Password string `json:"-" gorm:"not null"`
	Name     string `json:"name"`

	// Role holds an rbac.Role value. SuperAdmin users have no StoreID.
	Role    string `json:"role" gorm:"type:varchar(20);not null;default:'CUSTOMER'"`
	StoreID *uint  `json:"store_id" gorm:"index"`

	Store *Store `json:"-" gorm:"foreignKey:StoreID"`
}

func (u *User) GetPublicProfile() map[string]interface{} {
	return map[string]interface{}{
		"id":       u.ID,
		"email":    u.Email,
		"name":     strings.TrimSpace(u.Name),
		"role":     u.Role,
		"store_id": u.StoreID,
	}
}
