// Package testing provides test database setup and fixtures for the
// experiment engine test suite.
package testing

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates a tenant with a unique shop domain
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	tenant := &models.Tenant{
		UUID:       uuid.New(),
		ShopDomain: fmt.Sprintf("shop-%09d.example-platform.com", rand.Intn(900000000)+100000000),
		Name:       "Test Shop",
		IsActive:   utils.ToPtr(true),
	}
	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return tenant, nil
}

// CreateActiveTest creates an ACTIVE image test due for rotation at nextRotationAt
func (tf *TestFixtures) CreateActiveTest(tenantID uint, productID string, nextRotationAt time.Time) (*models.ImageTest, error) {
	test := &models.ImageTest{
		UUID:                    uuid.New(),
		TenantID:                tenantID,
		ProductID:               productID,
		Status:                  models.TestStatusActive,
		CurrentCase:             models.CaseBase,
		TrafficSplit:            50,
		RotationIntervalMinutes: 60,
		BaseImages:              pq.StringArray{"https://cdn.example.com/base-1.jpg"},
		TestImages:              pq.StringArray{"https://cdn.example.com/test-1.jpg", "https://cdn.example.com/test-2.jpg"},
		NextRotationAt:          &nextRotationAt,
	}
	if err := tf.DB.DB.Create(test).Error; err != nil {
		return nil, fmt.Errorf("failed to create active test: %w", err)
	}
	return test, nil
}

// CreateDraftTest creates a DRAFT test without a rotation schedule
func (tf *TestFixtures) CreateDraftTest(tenantID uint, productID string) (*models.ImageTest, error) {
	test := &models.ImageTest{
		UUID:                    uuid.New(),
		TenantID:                tenantID,
		ProductID:               productID,
		Status:                  models.TestStatusDraft,
		CurrentCase:             models.CaseBase,
		TrafficSplit:            50,
		RotationIntervalMinutes: 60,
		BaseImages:              pq.StringArray{"https://cdn.example.com/base-1.jpg"},
		TestImages:              pq.StringArray{"https://cdn.example.com/test-1.jpg"},
	}
	if err := tf.DB.DB.Create(test).Error; err != nil {
		return nil, fmt.Errorf("failed to create draft test: %w", err)
	}
	return test, nil
}

// CreateTestEvent creates one attribution event for the given test
func (tf *TestFixtures) CreateTestEvent(test *models.ImageTest, sessionID, eventType, caseName string, revenue *float64, createdAt time.Time) (*models.AttributionEvent, error) {
	event := &models.AttributionEvent{
		UUID:       uuid.New(),
		TestID:     test.ID,
		TenantID:   test.TenantID,
		SessionID:  sessionID,
		EventType:  eventType,
		CaseName:   caseName,
		ProductID:  test.ProductID,
		Revenue:    revenue,
		IsFallback: utils.ToPtr(false),
		CreatedAt:  createdAt,
	}
	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create attribution event: %w", err)
	}
	return event, nil
}

// CreateRotationEvent creates one audit row for the given test
func (tf *TestFixtures) CreateRotationEvent(test *models.ImageTest, fromCase, toCase, triggeredBy string, success bool) (*models.RotationEvent, error) {
	event := &models.RotationEvent{
		TestID:      test.ID,
		FromCase:    fromCase,
		ToCase:      toCase,
		TriggeredBy: triggeredBy,
		Success:     utils.ToPtr(success),
	}
	if err := tf.DB.DB.Create(event).Error; err != nil {
		return nil, fmt.Errorf("failed to create rotation event: %w", err)
	}
	return event, nil
}

// NewSessionID generates a session identifier shaped like the storefront's
func NewSessionID() string {
	return uuid.New().String()
}
