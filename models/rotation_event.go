package models

import (
	"time"
)

// Rotation trigger sources
const (
	RotationTriggerScheduler = "scheduler"
	RotationTriggerManual    = "manual"
)

// RotationEvent is the append-only audit trail of case transitions. One row
// is written per attempted transition, including failures, so stuck schedules
// are visible in postmortems.
type RotationEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	TestID      uint      `gorm:"not null;index:idx_rotation_events_test_id" json:"test_id"`
	Test        ImageTest `gorm:"foreignKey:TestID;references:ID" json:"test,omitempty"`
	FromCase    string    `gorm:"size:10;not null" json:"from_case"`
	ToCase      string    `gorm:"size:10;not null" json:"to_case"`
	TriggeredBy string    `gorm:"size:20;not null;index:idx_rotation_events_triggered_by" json:"triggered_by"`
	Success     *bool     `gorm:"default:true;index:idx_rotation_events_success" json:"success"`
	ErrorDetail *string   `gorm:"type:text" json:"error_detail,omitempty"`
	CreatedAt   time.Time `gorm:"default:CURRENT_TIMESTAMP;index:idx_rotation_events_created_at" json:"created_at"`
}

func (RotationEvent) TableName() string {
	return "rotation_events"
}

// RotationEventFilter represents filter criteria for rotation audit queries
type RotationEventFilter struct {
	ID            *uint
	TestID        *uint
	TriggeredBy   *string
	Success       *bool
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
