// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/utils"
	"gorm.io/gorm"
)

// ImageTestRepositoryImpl implements ImageTestRepository interface
type ImageTestRepositoryImpl struct {
	*BaseRepository[models.ImageTest, models.ImageTestFilter]
}

// NewImageTestRepository creates a new image test repository
func NewImageTestRepository(db *gorm.DB) ImageTestRepository {
	return &ImageTestRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ImageTest, models.ImageTestFilter](db),
	}
}

// ByUUID retrieves a test by UUID (string)
func (r *ImageTestRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.ImageTest, error) {
	parsed, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.ImageTestFilter{UUID: &parsed}
	items, err := r.ByFilter(ctx, filter, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ActiveByProductID retrieves the single ACTIVE test for a product, if any
func (r *ImageTestRepositoryImpl) ActiveByProductID(ctx context.Context, productID string) (*models.ImageTest, error) {
	status := models.TestStatusActive
	filter := models.ImageTestFilter{ProductID: &productID, Status: &status}
	items, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return items[0], nil
}

// ListDueForRotation returns ACTIVE tests whose next_rotation_at has passed
func (r *ImageTestRepositoryImpl) ListDueForRotation(ctx context.Context, now time.Time) ([]*models.ImageTest, error) {
	status := models.TestStatusActive
	filter := models.ImageTestFilter{Status: &status, DueBefore: &now}
	return r.ByFilter(ctx, filter, "next_rotation_at ASC", 0, 0)
}

// CommitRotation flips the case in a single guarded UPDATE. The guard on the
// previous next_rotation_at value makes the flip at-most-once per due
// interval: a concurrent or repeated attempt sees zero affected rows.
func (r *ImageTestRepositoryImpl) CommitRotation(ctx context.Context, testID uint, toCase string, expectedNext, lastRotation, nextRotation time.Time) (bool, error) {
	db := r.getDB(ctx)

	res := db.Model(&models.ImageTest{}).
		Where("id = ? AND status = ? AND next_rotation_at = ?", testID, models.TestStatusActive, expectedNext).
		Updates(map[string]any{
			"current_case":     toCase,
			"last_rotation_at": lastRotation,
			"next_rotation_at": nextRotation,
			"updated_at":       utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStatus transitions the test lifecycle status (operator pause/resume)
func (r *ImageTestRepositoryImpl) UpdateStatus(ctx context.Context, testID uint, status string) error {
	db := r.getDB(ctx)
	return db.Model(&models.ImageTest{}).
		Where("id = ?", testID).
		Updates(map[string]any{"status": status, "updated_at": utils.UTCNow()}).Error
}

// TenantIDForProduct infers the owning tenant from existing tests for the product
func (r *ImageTestRepositoryImpl) TenantIDForProduct(ctx context.Context, productID string) (uint, error) {
	filter := models.ImageTestFilter{ProductID: &productID}
	items, err := r.ByFilter(ctx, filter, "id DESC", 1, 0)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	return items[0].TenantID, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *ImageTestRepositoryImpl) applyFilter(query *gorm.DB, filter models.ImageTestFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CurrentCase != nil {
		query = query.Where("current_case = ?", *filter.CurrentCase)
	}
	if filter.DueBefore != nil {
		query = query.Where("next_rotation_at IS NOT NULL AND next_rotation_at <= ?", *filter.DueBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves tests based on filter criteria
func (r *ImageTestRepositoryImpl) ByFilter(ctx context.Context, filter models.ImageTestFilter, orderBy string, limit, offset int) ([]*models.ImageTest, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.ImageTest{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var items []*models.ImageTest
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of tests matching the filter
func (r *ImageTestRepositoryImpl) Count(ctx context.Context, filter models.ImageTestFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.ImageTest{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any test matching the filter exists
func (r *ImageTestRepositoryImpl) Exists(ctx context.Context, filter models.ImageTestFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
