// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/shopmorph/Kaleido/models"
	"gorm.io/gorm"
)

// RotationEventRepositoryImpl implements RotationEventRepository interface
type RotationEventRepositoryImpl struct {
	*BaseRepository[models.RotationEvent, models.RotationEventFilter]
}

// NewRotationEventRepository creates a new rotation event repository
func NewRotationEventRepository(db *gorm.DB) RotationEventRepository {
	return &RotationEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.RotationEvent, models.RotationEventFilter](db),
	}
}

// ListByTest returns the audit trail for one test, newest first
func (r *RotationEventRepositoryImpl) ListByTest(ctx context.Context, testID uint, limit, offset int) ([]*models.RotationEvent, error) {
	filter := models.RotationEventFilter{TestID: &testID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ListFailed returns unsuccessful rotation attempts, newest first
func (r *RotationEventRepositoryImpl) ListFailed(ctx context.Context, limit, offset int) ([]*models.RotationEvent, error) {
	success := false
	filter := models.RotationEventFilter{Success: &success}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// applyFilter applies filter criteria to a GORM query
func (r *RotationEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.RotationEventFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.TestID != nil {
		query = query.Where("test_id = ?", *filter.TestID)
	}
	if filter.TriggeredBy != nil {
		query = query.Where("triggered_by = ?", *filter.TriggeredBy)
	}
	if filter.Success != nil {
		query = query.Where("success = ?", *filter.Success)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves rotation events based on filter criteria
func (r *RotationEventRepositoryImpl) ByFilter(ctx context.Context, filter models.RotationEventFilter, orderBy string, limit, offset int) ([]*models.RotationEvent, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.RotationEvent{})

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

	var items []*models.RotationEvent
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of rotation events matching the filter
func (r *RotationEventRepositoryImpl) Count(ctx context.Context, filter models.RotationEventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.RotationEvent{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any rotation event matching the filter exists
func (r *RotationEventRepositoryImpl) Exists(ctx context.Context, filter models.RotationEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
