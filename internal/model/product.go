package model

import (
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "DRAFT"
	ProductStatusActive   ProductStatus = "ACTIVE"
	ProductStatusArchived ProductStatus = "ARCHIVED"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
		return true
	}
	return false
}

type Product struct {
	gorm.Model
	StoreID     uint          `json:"store_id" gorm:"index;not null;uniqueIndex:idx_store_product_slug"`
	Name        string        `json:"name" gorm:"not null"`
	Slug        string        `json:"slug" gorm:"not null;uniqueIndex:idx_store_product_slug"`
	SKU         string        `json:"sku" gorm:"index"`
	Description string        `json:"description" gorm:"type:text"`
	Price       float64       `json:"price" gorm:"not null"`
	Currency    string        `json:"currency" gorm:"type:varchar(3);not null;default:'USD'"`
	Stock       int           `json:"stock" gorm:"not null;default:0"`
	Status      ProductStatus `json:"status" gorm:"type:varchar(20);not null;default:'DRAFT'"`

	Store Store `json:"-" gorm:"foreignKey:StoreID"`
}

// BeforeCreate derives a store-unique slug from the product name.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.Slug == "" {
		p.Slug = slug.Make(p.Name)
	}
	if p.Status == "" {
		p.Status = ProductStatusDraft
	}

	var count int64
	if err := tx.Model(&Product{}).Unscoped().
		Where("store_id = ? AND slug = ?", p.StoreID, p.Slug).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		p.Slug = fmt.Sprintf("%s-%d", p.Slug, time.Now().UnixNano()%100000)
	}
	return nil
}
