// Package models contains domain entities and business models for the experiment engine
package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one installed storefront. Tenant provisioning happens in the
// installation service; this system only resolves and reads tenants.
type Tenant struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_tenants_uuid" json:"uuid"`
	ShopDomain string    `gorm:"size:255;not null;uniqueIndex:uk_tenants_shop_domain" json:"shop_domain"`
	Name       string    `gorm:"size:255" json:"name"`
	IsActive   *bool     `gorm:"default:true;index:idx_tenants_is_active" json:"is_active"`
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID         *uint
	UUID       *uuid.UUID
	ShopDomain *string
	IsActive   *bool
}
