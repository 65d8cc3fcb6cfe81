// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/shopmorph/Kaleido/models"
	"gorm.io/gorm"
)

// DailyStatisticRepositoryImpl implements DailyStatisticRepository interface
type DailyStatisticRepositoryImpl struct {
	*BaseRepository[models.DailyStatistic, models.DailyStatisticFilter]
}

// NewDailyStatisticRepository creates a new daily statistic repository
func NewDailyStatisticRepository(db *gorm.DB) DailyStatisticRepository {
	return &DailyStatisticRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DailyStatistic, models.DailyStatisticFilter](db),
	}
}

// SaveIfAbsent inserts the rollup row only when its key does not exist yet.
// The existence check and insert share one transaction so repeated
// aggregation runs over overlapping ranges never double-count.
func (r *DailyStatisticRepositoryImpl) SaveIfAbsent(ctx context.Context, stat *models.DailyStatistic) (inserted bool, err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	var count int64
	err = db.Model(&models.DailyStatistic{}).
		Where("tenant_id = ? AND product_id = ? AND case_name = ? AND date = ?",
			stat.TenantID, stat.ProductID, stat.CaseName, stat.Date).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	err = db.Create(stat).Error
	if err != nil {
		return false, err
	}
	return true, nil
}

// ByRange returns rollup rows for a tenant inside [from, to], oldest first
func (r *DailyStatisticRepositoryImpl) ByRange(ctx context.Context, tenantID uint, from, to time.Time) ([]*models.DailyStatistic, error) {
	filter := models.DailyStatisticFilter{TenantID: &tenantID, DateAfter: &from, DateBefore: &to}
	return r.ByFilter(ctx, filter, "date ASC, product_id ASC, case_name ASC", 0, 0)
}

// applyFilter applies filter criteria to a GORM query
func (r *DailyStatisticRepositoryImpl) applyFilter(query *gorm.DB, filter models.DailyStatisticFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.CaseName != nil {
		query = query.Where("case_name = ?", *filter.CaseName)
	}
	if filter.Date != nil {
		query = query.Where("date = ?", *filter.Date)
	}
	if filter.DateAfter != nil {
		query = query.Where("date >= ?", *filter.DateAfter)
	}
	if filter.DateBefore != nil {
		query = query.Where("date <= ?", *filter.DateBefore)
	}
	return query
}

// ByFilter retrieves rollup rows based on filter criteria
func (r *DailyStatisticRepositoryImpl) ByFilter(ctx context.Context, filter models.DailyStatisticFilter, orderBy string, limit, offset int) ([]*models.DailyStatistic, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.DailyStatistic{})

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

	var items []*models.DailyStatistic
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Count returns the number of rollup rows matching the filter
func (r *DailyStatisticRepositoryImpl) Count(ctx context.Context, filter models.DailyStatisticFilter) (int64, error) {
	db := r.getDB(ctx)
	query := r.applyFilter(db.Model(&models.DailyStatistic{}), filter)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any rollup row matching the filter exists
func (r *DailyStatisticRepositoryImpl) Exists(ctx context.Context, filter models.DailyStatisticFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
