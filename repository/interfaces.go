// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/shopmorph/Kaleido/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Tenant, error)
	ByShopDomain(ctx context.Context, domain string) (*models.Tenant, error)
}

// ImageTestRepository defines operations for gallery experiments
type ImageTestRepository interface {
	Repository[models.ImageTest, models.ImageTestFilter]
	ByUUID(ctx context.Context, uuid string) (*models.ImageTest, error)
	ActiveByProductID(ctx context.Context, productID string) (*models.ImageTest, error)
	ListDueForRotation(ctx context.Context, now time.Time) ([]*models.ImageTest, error)
	// CommitRotation applies one case flip guarded by the previous
	// next_rotation_at value; the write of next_rotation_at is the commit
	// point that makes a transition at-most-once per due interval.
	CommitRotation(ctx context.Context, testID uint, toCase string, expectedNext, lastRotation, nextRotation time.Time) (bool, error)
	UpdateStatus(ctx context.Context, testID uint, status string) error
	TenantIDForProduct(ctx context.Context, productID string) (uint, error)
}

// RotationEventRepository defines operations for the rotation audit trail
type RotationEventRepository interface {
	Repository[models.RotationEvent, models.RotationEventFilter]
	ListByTest(ctx context.Context, testID uint, limit, offset int) ([]*models.RotationEvent, error)
	ListFailed(ctx context.Context, limit, offset int) ([]*models.RotationEvent, error)
}

// AttributionEventRepository defines operations for attribution events
type AttributionEventRepository interface {
	Repository[models.AttributionEvent, models.AttributionEventFilter]
	ListForAggregation(ctx context.Context, from, to time.Time, tenantID *uint) ([]*models.AttributionEvent, error)
}

// DailyStatisticRepository defines operations for daily rollup rows
type DailyStatisticRepository interface {
	Repository[models.DailyStatistic, models.DailyStatisticFilter]
	// SaveIfAbsent inserts the row only when no row exists for its
	// (tenant, product, case, date) key; reports whether a row was written.
	SaveIfAbsent(ctx context.Context, stat *models.DailyStatistic) (bool, error)
	ByRange(ctx context.Context, tenantID uint, from, to time.Time) ([]*models.DailyStatistic, error)
}
