// Package businessflow contains use cases for attribution event ingestion
package businessflow

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/shopmorph/Kaleido/app/dto"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/repository"
	"github.com/shopmorph/Kaleido/utils"
	"gorm.io/gorm"
)

// EventFlow validates and persists attribution events
type EventFlow interface {
	RecordEvent(ctx context.Context, req *dto.RecordEventRequest, metadata *ClientMetadata) (*dto.RecordEventResponse, error)
}

type EventFlowImpl struct {
	testRepo  repository.ImageTestRepository
	eventRepo repository.AttributionEventRepository
	db        *gorm.DB
}

func NewEventFlow(
	testRepo repository.ImageTestRepository,
	eventRepo repository.AttributionEventRepository,
	db *gorm.DB,
) EventFlow {
	return &EventFlowImpl{
		testRepo:  testRepo,
		eventRepo: eventRepo,
		db:        db,
	}
}

// RecordEvent validates, deduplicates and persists one attribution event.
// Unknown test ids are rejected with a reason rather than silently dropped
// so client-side misconfiguration stays visible. Duplicate impressions and
// duplicate fallback add-to-carts are acknowledged without a second row.
func (f *EventFlowImpl) RecordEvent(ctx context.Context, req *dto.RecordEventRequest, metadata *ClientMetadata) (*dto.RecordEventResponse, error) {
	if err := f.validate(req); err != nil {
		return nil, err
	}

	test, err := f.testRepo.ByUUID(ctx, req.TestID)
	if err != nil {
		return nil, NewBusinessError("RECORD_EVENT_FAILED", "Failed to look up test", err)
	}
	if test == nil {
		log.Printf("event: rejected event for unknown test %s (session=%s)", req.TestID, req.SessionID)
		return nil, ErrUnknownTest
	}

	tenantID := test.TenantID
	if tenantID == 0 {
		// Fall back to the product -> tenant index built from existing tests
		tenantID, err = f.testRepo.TenantIDForProduct(ctx, req.ProductID)
		if err != nil {
			return nil, NewBusinessError("RECORD_EVENT_FAILED", "Failed to resolve tenant", err)
		}
		if tenantID == 0 {
			return nil, ErrTenantUnmapped
		}
	}

	duplicate, err := f.isDuplicate(ctx, req, test.ID)
	if err != nil {
		return nil, NewBusinessError("RECORD_EVENT_FAILED", "Failed to check for duplicate event", err)
	}
	if duplicate {
		return &dto.RecordEventResponse{Duplicate: true}, nil
	}

	event := &models.AttributionEvent{
		UUID:       uuid.New(),
		TestID:     test.ID,
		TenantID:   tenantID,
		SessionID:  req.SessionID,
		EventType:  req.EventType,
		CaseName:   req.Case,
		ProductID:  req.ProductID,
		VariantID:  req.VariantID,
		Revenue:    req.Revenue,
		IsFallback: utils.ToPtr(req.Fallback),
		CreatedAt:  utils.UTCNow(),
	}
	if err := f.eventRepo.Save(ctx, event); err != nil {
		return nil, NewBusinessError("RECORD_EVENT_FAILED", "Failed to persist event", err)
	}

	return &dto.RecordEventResponse{EventID: event.UUID.String()}, nil
}

func (f *EventFlowImpl) validate(req *dto.RecordEventRequest) error {
	if req.SessionID == "" {
		return ErrSessionRequired
	}
	if req.ProductID == "" {
		return ErrProductRequired
	}
	if !models.IsValidEventType(req.EventType) {
		return ErrInvalidEventType
	}
	if !models.IsValidCase(req.Case) {
		return ErrInvalidCase
	}
	return nil
}

// isDuplicate enforces the per-(session, test, case) uniqueness rules:
// at most one impression, and at most one add-to-cart recorded through the
// passive network-interception fallback. Explicit add-to-carts and purchases
// are not deduplicated here; the client throttles the former and checkout
// completion gates the latter.
func (f *EventFlowImpl) isDuplicate(ctx context.Context, req *dto.RecordEventRequest, testID uint) (bool, error) {
	switch {
	case req.EventType == models.EventTypeImpression:
		filter := models.AttributionEventFilter{
			TestID:    &testID,
			SessionID: &req.SessionID,
			CaseName:  &req.Case,
			EventType: utils.ToPtr(models.EventTypeImpression),
		}
		return f.eventRepo.Exists(ctx, filter)
	case req.EventType == models.EventTypeAddToCart && req.Fallback:
		filter := models.AttributionEventFilter{
			TestID:     &testID,
			SessionID:  &req.SessionID,
			CaseName:   &req.Case,
			EventType:  utils.ToPtr(models.EventTypeAddToCart),
			IsFallback: utils.ToPtr(true),
		}
		return f.eventRepo.Exists(ctx, filter)
	}
	return false, nil
}
