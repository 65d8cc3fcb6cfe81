// Package testing provides test database setup and fixtures for the
// experiment engine test suite.
package testing

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB wraps an isolated in-memory database instance. Every call to
// SetupTestDB yields a fresh schema, so suites never share state.
type TestDB struct {
	DB *gorm.DB
}

// SetupTestDB opens a private in-memory database and migrates the full schema
func SetupTestDB() (*TestDB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Tenant{},
		&models.ImageTest{},
		&models.RotationEvent{},
		&models.AttributionEvent{},
		&models.DailyStatistic{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate test schema: %w", err)
	}

	return &TestDB{DB: db}, nil
}

// TeardownTestDB closes the database; the in-memory schema dies with it
func (tdb *TestDB) TeardownTestDB() error {
	if tdb.DB == nil {
		return nil
	}
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ClearAllTables removes all rows while preserving the schema.
// Order matters due to foreign key constraints.
func (tdb *TestDB) ClearAllTables() error {
	tables := []string{
		"daily_statistics",
		"attribution_events",
		"rotation_events",
		"image_tests",
		"tenants",
	}
	for _, table := range tables {
		if err := tdb.DB.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}
	return nil
}

// TestWithDB runs a test function against a fresh database with cleanup
func TestWithDB(testFunc func(*TestDB) error) error {
	testDB, err := SetupTestDB()
	if err != nil {
		return fmt.Errorf("failed to setup test database: %w", err)
	}
	defer testDB.TeardownTestDB()

	return testFunc(testDB)
}

// CreateTestContext creates a context with test metadata for flow calls
func CreateTestContext() context.Context {
	ctx := context.Background()
	ctx = context.WithValue(ctx, utils.RequestIDKey, "test-request-id")
	ctx = context.WithValue(ctx, utils.UserAgentKey, "test-user-agent")
	ctx = context.WithValue(ctx, utils.IPAddressKey, "127.0.0.1")
	ctx = context.WithValue(ctx, utils.EndpointKey, "test-endpoint")
	ctx = context.WithValue(ctx, utils.TimeoutKey, 30*time.Second)
	return ctx
}
