package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Test lifecycle statuses. Status is mutated only by operator pause/resume
// and completion; the rotation state machine touches case and timestamps only.
const (
	TestStatusDraft     = "draft"
	TestStatusActive    = "active"
	TestStatusPaused    = "paused"
	TestStatusCompleted = "completed"
)

// Experiment arms
const (
	CaseBase = "base"
	CaseTest = "test"
)

// ImageTest is one gallery experiment for one product within one tenant.
// CurrentCase is the authoritative control arm flipped by the rotation
// scheduler; it is never deleted, only status-transitioned.
type ImageTest struct {
	ID                      uint           `gorm:"primaryKey" json:"id"`
	UUID                    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_image_tests_uuid" json:"uuid"`
	TenantID                uint           `gorm:"not null;index:idx_image_tests_tenant_id" json:"tenant_id"`
	Tenant                  Tenant         `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
	ProductID               string         `gorm:"size:255;not null;index:idx_image_tests_product_id" json:"product_id"`
	Status                  string         `gorm:"size:20;not null;default:draft;index:idx_image_tests_status" json:"status"`
	CurrentCase             string         `gorm:"size:10;not null;default:base" json:"current_case"`
	TrafficSplit            int            `gorm:"not null;default:50" json:"traffic_split"`
	RotationIntervalMinutes int            `gorm:"not null;default:60" json:"rotation_interval_minutes"`
	BaseImages              pq.StringArray `gorm:"type:text[]" json:"base_images"`
	TestImages              pq.StringArray `gorm:"type:text[]" json:"test_images"`
	LastRotationAt          *time.Time     `gorm:"index:idx_image_tests_last_rotation" json:"last_rotation_at,omitempty"`
	NextRotationAt          *time.Time     `gorm:"index:idx_image_tests_next_rotation" json:"next_rotation_at,omitempty"`
	CreatedAt               time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt               time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ImageTest) TableName() string {
	return "image_tests"
}

// ImageTestFilter represents filter criteria for test queries
type ImageTestFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	TenantID      *uint
	ProductID     *string
	Status        *string
	CurrentCase   *string
	DueBefore     *time.Time // next_rotation_at <= value
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// RotationInterval returns the configured rotation cadence as a duration
func (t *ImageTest) RotationInterval() time.Duration {
	return time.Duration(t.RotationIntervalMinutes) * time.Minute
}

func (t *ImageTest) IsActive() bool {
	return t.Status == TestStatusActive
}

// CanActivate reports whether the ACTIVE invariant holds: at least one image
// in both arms. NextRotationAt is scheduled as part of activation itself.
func (t *ImageTest) CanActivate() bool {
	return len(t.BaseImages) > 0 && len(t.TestImages) > 0
}

// ImagesForCase returns the ordered image list of the given arm
func (t *ImageTest) ImagesForCase(caseName string) []string {
	if caseName == CaseTest {
		return t.TestImages
	}
	return t.BaseImages
}

// OppositeCase returns the other arm of the experiment
func OppositeCase(caseName string) string {
	if caseName == CaseBase {
		return CaseTest
	}
	return CaseBase
}

// IsValidCase reports whether the given string names an experiment arm
func IsValidCase(caseName string) bool {
	return caseName == CaseBase || caseName == CaseTest
}
