// Package businessflow contains use cases for the rotation state machine
package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopmorph/Kaleido/app/dto"
	"github.com/shopmorph/Kaleido/config"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/repository"
	"github.com/shopmorph/Kaleido/utils"
	"gorm.io/gorm"
)

// RotationFlow owns the authoritative BASE/TEST state per test: the flip
// rule, the audit trail, and the operator pause/resume transitions.
type RotationFlow interface {
	RotateDueTests(ctx context.Context, triggeredBy string) (*dto.RotationRunSummary, error)
	PauseTest(ctx context.Context, testUUID string) error
	ResumeTest(ctx context.Context, testUUID string) error
}

type RotationFlowImpl struct {
	testRepo     repository.ImageTestRepository
	rotationRepo repository.RotationEventRepository
	db           *gorm.DB
	rc           *redis.Client
	cacheConfig  *config.CacheConfig
}

func NewRotationFlow(
	testRepo repository.ImageTestRepository,
	rotationRepo repository.RotationEventRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) RotationFlow {
	return &RotationFlowImpl{
		testRepo:     testRepo,
		rotationRepo: rotationRepo,
		db:           db,
		rc:           rc,
		cacheConfig:  cacheConfig,
	}
}

// RotateDueTests advances every ACTIVE test whose next_rotation_at has
// passed. Each test is its own unit of consistency: a failure on one test is
// recorded and the remaining tests are still processed.
func (f *RotationFlowImpl) RotateDueTests(ctx context.Context, triggeredBy string) (*dto.RotationRunSummary, error) {
	now := utils.UTCNow()

	due, err := f.testRepo.ListDueForRotation(ctx, now)
	if err != nil {
		return nil, NewBusinessError("ROTATE_DUE_TESTS_FAILED", "Failed to list due tests", err)
	}

	summary := &dto.RotationRunSummary{RanAt: now}
	for _, test := range due {
		result := dto.RotationResult{
			TestID:   test.UUID.String(),
			FromCase: test.CurrentCase,
			ToCase:   models.OppositeCase(test.CurrentCase),
		}

		if err := f.rotateOne(ctx, test, now, triggeredBy); err != nil {
			result.Error = err.Error()
			summary.Failed = append(summary.Failed, result)
			continue
		}
		summary.Applied = append(summary.Applied, result)
	}

	return summary, nil
}

// rotateOne flips a single test. The guarded update of next_rotation_at is
// the commit point; the audit row rides the same transaction so a flip and
// its record are atomic. On error the schedule is left untouched and the
// test is retried on the next tick, with an unsuccessful audit row written
// best-effort outside the rolled-back transaction.
func (f *RotationFlowImpl) rotateOne(ctx context.Context, test *models.ImageTest, now time.Time, triggeredBy string) error {
	if test.NextRotationAt == nil {
		return fmt.Errorf("test %s has no scheduled rotation", test.UUID)
	}

	expectedNext := *test.NextRotationAt
	toCase := models.OppositeCase(test.CurrentCase)
	nextRotation := NextRotationAfter(expectedNext, test.RotationInterval(), now)

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		committed, err := f.testRepo.CommitRotation(txCtx, test.ID, toCase, expectedNext, now, nextRotation)
		if err != nil {
			return err
		}
		if !committed {
			// Someone else advanced the schedule since we read it; the
			// at-most-once guard makes this a no-op, not a failure.
			return nil
		}

		return f.rotationRepo.Save(txCtx, &models.RotationEvent{
			TestID:      test.ID,
			FromCase:    test.CurrentCase,
			ToCase:      toCase,
			TriggeredBy: triggeredBy,
			Success:     utils.ToPtr(true),
			CreatedAt:   now,
		})
	})
	if err != nil {
		f.recordFailure(ctx, test, toCase, triggeredBy, err)
		return err
	}

	f.invalidateCache(ctx, test.ProductID)
	return nil
}

// NextRotationAfter computes the schedule after a flip: one interval past
// the old deadline when the tick is on time, and one interval past now when
// the scheduler was down across several intervals. Missed intervals are
// never back-filled.
func NextRotationAfter(oldNext time.Time, interval time.Duration, now time.Time) time.Time {
	next := oldNext.Add(interval)
	if !next.After(now) {
		next = now.Add(interval)
	}
	return next
}

func (f *RotationFlowImpl) recordFailure(ctx context.Context, test *models.ImageTest, toCase, triggeredBy string, cause error) {
	detail := cause.Error()
	_ = f.rotationRepo.Save(ctx, &models.RotationEvent{
		TestID:      test.ID,
		FromCase:    test.CurrentCase,
		ToCase:      toCase,
		TriggeredBy: triggeredBy,
		Success:     utils.ToPtr(false),
		ErrorDetail: &detail,
		CreatedAt:   utils.UTCNow(),
	})
}

func (f *RotationFlowImpl) invalidateCache(ctx context.Context, productID string) {
	if f.rc == nil || f.cacheConfig == nil || !f.cacheConfig.Enabled {
		return
	}
	_ = f.rc.Del(ctx, redisKey(*f.cacheConfig, "active_test:"+productID)).Err()
}

// PauseTest transitions an ACTIVE test to PAUSED
func (f *RotationFlowImpl) PauseTest(ctx context.Context, testUUID string) error {
	test, err := f.testRepo.ByUUID(ctx, testUUID)
	if err != nil {
		return NewBusinessError("PAUSE_TEST_FAILED", "Failed to look up test", err)
	}
	if test == nil {
		return ErrTestNotFound
	}
	if test.Status != models.TestStatusActive {
		return ErrInvalidStatusTransition
	}

	if err := f.testRepo.UpdateStatus(ctx, test.ID, models.TestStatusPaused); err != nil {
		return NewBusinessError("PAUSE_TEST_FAILED", "Failed to pause test", err)
	}
	f.invalidateCache(ctx, test.ProductID)
	return nil
}

// ResumeTest transitions a PAUSED test back to ACTIVE and reschedules its
// next rotation one interval out. The ACTIVE invariant (both image lists
// non-empty) is re-checked on resume.
func (f *RotationFlowImpl) ResumeTest(ctx context.Context, testUUID string) error {
	test, err := f.testRepo.ByUUID(ctx, testUUID)
	if err != nil {
		return NewBusinessError("RESUME_TEST_FAILED", "Failed to look up test", err)
	}
	if test == nil {
		return ErrTestNotFound
	}
	if test.Status != models.TestStatusPaused {
		return ErrInvalidStatusTransition
	}
	if !test.CanActivate() {
		return ErrTestImagesRequired
	}

	next := utils.UTCNowAdd(test.RotationInterval())
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.testRepo.UpdateStatus(txCtx, test.ID, models.TestStatusActive); err != nil {
			return err
		}
		db := f.db
		if tx, ok := txCtx.Value(repository.TxContextKey).(*gorm.DB); ok && tx != nil {
			db = tx
		}
		return db.Model(&models.ImageTest{}).
			Where("id = ?", test.ID).
			Update("next_rotation_at", next).Error
	})
	if err != nil {
		return NewBusinessError("RESUME_TEST_FAILED", "Failed to resume test", err)
	}
	f.invalidateCache(ctx, test.ProductID)
	return nil
}
