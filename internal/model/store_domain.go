package model

import "gorm.io/gorm"

// StoreDomain maps a custom hostname to a store. Hostnames are stored
// normalized: lowercase, no port, no trailing dot. A live hostname belongs to
// one store and a store has at most one live primary domain.
type StoreDomain struct {
	gorm.Model
	StoreID   uint   `json:"store_id" gorm:"index;not null;uniqueIndex:idx_store_domains_one_primary,where:is_primary = true AND deleted_at IS NULL"`
	Hostname  string `json:"hostname" gorm:"not null;uniqueIndex:idx_store_domains_live_hostname,where:deleted_at IS NULL"`
	IsPrimary bool   `json:"is_primary" gorm:"default:false"`

	Store Store `json:"-" gorm:"foreignKey:StoreID"`
}
