package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan is the subscription tier of a store.
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanBasic      Plan = "BASIC"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// Valid reports whether p is one of the known plans.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// SubscriptionStatus is the billing state of a store's subscription.
type SubscriptionStatus string

const (
	StatusTrial    SubscriptionStatus = "TRIAL"
	StatusActive   SubscriptionStatus = "ACTIVE"
	StatusPastDue  SubscriptionStatus = "PAST_DUE"
	StatusCanceled SubscriptionStatus = "CANCELED"
	StatusPaused   SubscriptionStatus = "PAUSED"
	StatusExpired  SubscriptionStatus = "EXPIRED"
)

// Unlimited marks a limit column that is not enforced.
const Unlimited = -1

// Store is the tenant root. Every tenant-owned row carries its StoreID.
type Store struct {
	gorm.Model
	Name       string `json:"name" gorm:"not null"`
	Slug       string `json:"slug" gorm:"uniqueIndex;not null"`
	OwnerEmail string `json:"owner_email"`

	Plan               Plan               `json:"plan" gorm:"type:varchar(20);not null;default:'FREE'"`
	SubscriptionStatus SubscriptionStatus `json:"subscription_status" gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	ProductLimit       int                `json:"product_limit" gorm:"not null"`
	OrderLimit         int                `json:"order_limit" gorm:"not null"`
	TrialEndsAt        *time.Time         `json:"trial_ends_at"`
	SubscriptionEndsAt *time.Time         `json:"subscription_ends_at"`

	StripeCustomerID     string `json:"-" gorm:"index"`
	StripeSubscriptionID string `json:"-" gorm:"index"`

	LogoURL  string         `json:"logo_url"`
	Settings datatypes.JSON `json:"settings"`

	Domains []StoreDomain `json:"domains,omitempty" gorm:"foreignKey:StoreID"`
}

// SubdomainHost returns the platform hostname of the store.
func (s *Store) SubdomainHost(baseDomain string) string {
	return s.Slug + "." + baseDomain
}
