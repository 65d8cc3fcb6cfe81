package models

import (
	"time"

	"github.com/google/uuid"
)

// Attribution event types
const (
	EventTypeImpression = "impression"
	EventTypeAddToCart  = "add_to_cart"
	EventTypePurchase   = "purchase"
)

// AttributionEvent is one shopper signal correlated to a session and the case
// the session was assigned at emission time. Sessions are not persisted as
// entities; SessionID is purely a correlation key.
type AttributionEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_attribution_events_uuid" json:"uuid"`
	TestID     uint      `gorm:"not null;index:idx_attribution_events_test_id" json:"test_id"`
	Test       ImageTest `gorm:"foreignKey:TestID;references:ID" json:"test,omitempty"`
	TenantID   uint      `gorm:"not null;index:idx_attribution_events_tenant_id" json:"tenant_id"`
	SessionID  string    `gorm:"size:64;not null;index:idx_attribution_events_session_id" json:"session_id"`
	EventType  string    `gorm:"size:20;not null;index:idx_attribution_events_event_type" json:"event_type"`
	CaseName   string    `gorm:"column:case_name;size:10;not null" json:"case"`
	ProductID  string    `gorm:"size:255;not null;index:idx_attribution_events_product_id" json:"product_id"`
	VariantID  *string   `gorm:"size:255" json:"variant_id,omitempty"`
	Revenue    *float64  `json:"revenue,omitempty"`
	IsFallback *bool     `gorm:"default:false" json:"is_fallback"` // add-to-cart detected via network interception
	CreatedAt  time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_attribution_events_created_at" json:"created_at"`
}

func (AttributionEvent) TableName() string {
	return "attribution_events"
}

// AttributionEventFilter represents filter criteria for event queries
type AttributionEventFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TestID        *uint
	TenantID      *uint
	SessionID     *string
	EventType     *string
	CaseName      *string
	ProductID     *string
	IsFallback    *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// IsValidEventType reports whether the given string names a known event type
func IsValidEventType(eventType string) bool {
	switch eventType {
	case EventTypeImpression, EventTypeAddToCart, EventTypePurchase:
		return true
	}
	return false
}
