// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/shopmorph/Kaleido/models"
	"gorm.io/gorm"
)

// AttributionEventRepositoryImpl implements AttributionEventRepository interface
type AttributionEventRepositoryImpl struct {
	*BaseRepository[models.AttributionEvent, models.AttributionEventFilter]
}

// NewAttributionEventRepository creates a new attribution event repository
func NewAttributionEventRepository(db *gorm.DB) AttributionEventRepository {
	return &AttributionEventRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AttributionEvent, models.AttributionEventFilter](db),
	}
}

// ListForAggregation returns all events inside [from, to), oldest first,
// optionally scoped to one tenant. The aggregator groups them by
// (tenant, product, case, day).
func (r *AttributionEventRepositoryImpl) ListForAggregation(ctx context.Context, from, to time.Time, tenantID *uint) ([]*models.AttributionEvent, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AttributionEvent{}).
		Where("created_at >= ? AND created_at < ?", from, to)
	if tenantID != nil {
		query = query.Where("tenant_id = ?", *tenantID)
	}
	query = query.Order("created_at ASC")

	var items []*models.AttributionEvent
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *AttributionEventRepositoryImpl) applyFilter(query *gorm.DB, filter models.AttributionEventFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TestID != nil {
		query = query.Where("test_id = ?", *filter.TestID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.SessionID != nil {
		query = query.Where("session_id = ?", *filter.SessionID)
	}
	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}
	if filter.CaseName != nil {
		query = query.Where("case_name = ?", *filter.CaseName)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.IsFallback != nil {
		query = query.Where("is_fallback = ?", *filter.IsFallback)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves attribution events based on filter criteria
func (r *AttributionEventRepositoryImpl) ByFilter(ctx context.Context, filter models.AttributionEventFilter, orderBy string, limit, offset int) ([]*models.AttributionEvent, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.AttributionEvent{})

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

	var items []*models.AttributionEvent
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of attribution events matching the filter
func (r *AttributionEventRepositoryImpl) Count(ctx context.Context, filter models.AttributionEventFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.AttributionEvent{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any attribution event matching the filter exists
func (r *AttributionEventRepositoryImpl) Exists(ctx context.Context, filter models.AttributionEventFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
