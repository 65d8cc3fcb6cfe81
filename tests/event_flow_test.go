// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopmorph/Kaleido/app/dto"
	businessflow "github.com/shopmorph/Kaleido/business_flow"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/repository"
	testingutil "github.com/shopmorph/Kaleido/testing"
	"github.com/shopmorph/Kaleido/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEventFlow(testDB *testingutil.TestDB) (businessflow.EventFlow, repository.AttributionEventRepository) {
	testRepo := repository.NewImageTestRepository(testDB.DB)
	eventRepo := repository.NewAttributionEventRepository(testDB.DB)
	return businessflow.NewEventFlow(testRepo, eventRepo, testDB.DB), eventRepo
}

func TestRecordEvent_PersistsAndStampsTenant(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, eventRepo := newEventFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		res, err := flow.RecordEvent(ctx, &dto.RecordEventRequest{
			TestID:    test.UUID.String(),
			SessionID: testingutil.NewSessionID(),
			EventType: models.EventTypeImpression,
			ProductID: "prod-1",
			Case:      models.CaseBase,
		}, metadata)
		require.NoError(t, err)
		assert.False(t, res.Duplicate)
		require.NotEmpty(t, res.EventID)

		eventUUID, err := uuid.Parse(res.EventID)
		require.NoError(t, err)
		events, err := eventRepo.ByFilter(ctx, models.AttributionEventFilter{UUID: &eventUUID}, "", 1, 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, tenant.ID, events[0].TenantID)
		assert.Equal(t, test.ID, events[0].TestID)

		return nil
	})
	require.NoError(t, err)
}

func TestRecordEvent_UnknownTestRejected(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newEventFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		_, err := flow.RecordEvent(ctx, &dto.RecordEventRequest{
			TestID:    uuid.New().String(),
			SessionID: testingutil.NewSessionID(),
			EventType: models.EventTypeImpression,
			ProductID: "prod-1",
			Case:      models.CaseBase,
		}, metadata)
		assert.True(t, businessflow.IsUnknownTest(err))

		return nil
	})
	require.NoError(t, err)
}

func TestRecordEvent_Validation(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newEventFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		valid := func() *dto.RecordEventRequest {
			return &dto.RecordEventRequest{
				TestID:    test.UUID.String(),
				SessionID: testingutil.NewSessionID(),
				EventType: models.EventTypeImpression,
				ProductID: "prod-1",
				Case:      models.CaseBase,
			}
		}

		t.Run("BadEventType", func(t *testing.T) {
			req := valid()
			req.EventType = "page_view"
			_, err := flow.RecordEvent(ctx, req, metadata)
			assert.True(t, businessflow.IsValidationError(err))
		})

		t.Run("BadCase", func(t *testing.T) {
			req := valid()
			req.Case = "variant-b"
			_, err := flow.RecordEvent(ctx, req, metadata)
			assert.True(t, businessflow.IsValidationError(err))
		})

		t.Run("MissingSession", func(t *testing.T) {
			req := valid()
			req.SessionID = ""
			_, err := flow.RecordEvent(ctx, req, metadata)
			assert.True(t, businessflow.IsValidationError(err))
		})

		t.Run("MissingProduct", func(t *testing.T) {
			req := valid()
			req.ProductID = ""
			_, err := flow.RecordEvent(ctx, req, metadata)
			assert.True(t, businessflow.IsValidationError(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRecordEvent_Dedup(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, eventRepo := newEventFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		sessionID := testingutil.NewSessionID()

		t.Run("DuplicateImpression", func(t *testing.T) {
			req := &dto.RecordEventRequest{
				TestID:    test.UUID.String(),
				SessionID: sessionID,
				EventType: models.EventTypeImpression,
				ProductID: "prod-1",
				Case:      models.CaseBase,
			}
			first, err := flow.RecordEvent(ctx, req, metadata)
			require.NoError(t, err)
			assert.False(t, first.Duplicate)

			second, err := flow.RecordEvent(ctx, req, metadata)
			require.NoError(t, err)
			assert.True(t, second.Duplicate)
			assert.Empty(t, second.EventID)
		})

		t.Run("ImpressionPerCaseIsSeparate", func(t *testing.T) {
			res, err := flow.RecordEvent(ctx, &dto.RecordEventRequest{
				TestID:    test.UUID.String(),
				SessionID: sessionID,
				EventType: models.EventTypeImpression,
				ProductID: "prod-1",
				Case:      models.CaseTest,
			}, metadata)
			require.NoError(t, err)
			assert.False(t, res.Duplicate)
		})

		t.Run("FallbackAddToCartDeduped", func(t *testing.T) {
			req := &dto.RecordEventRequest{
				TestID:    test.UUID.String(),
				SessionID: sessionID,
				EventType: models.EventTypeAddToCart,
				ProductID: "prod-1",
				Case:      models.CaseBase,
				Fallback:  true,
			}
			first, err := flow.RecordEvent(ctx, req, metadata)
			require.NoError(t, err)
			assert.False(t, first.Duplicate)

			second, err := flow.RecordEvent(ctx, req, metadata)
			require.NoError(t, err)
			assert.True(t, second.Duplicate)
		})

		t.Run("ExplicitAddToCartNotDeduped", func(t *testing.T) {
			req := &dto.RecordEventRequest{
				TestID:    test.UUID.String(),
				SessionID: sessionID,
				EventType: models.EventTypeAddToCart,
				ProductID: "prod-1",
				Case:      models.CaseBase,
			}
			for i := 0; i < 2; i++ {
				res, err := flow.RecordEvent(ctx, req, metadata)
				require.NoError(t, err)
				assert.False(t, res.Duplicate)
			}
		})

		t.Run("PurchasesNotDeduped", func(t *testing.T) {
			req := &dto.RecordEventRequest{
				TestID:    test.UUID.String(),
				SessionID: sessionID,
				EventType: models.EventTypePurchase,
				ProductID: "prod-1",
				Case:      models.CaseBase,
				Revenue:   utils.ToPtr(19.90),
			}
			for i := 0; i < 2; i++ {
				res, err := flow.RecordEvent(ctx, req, metadata)
				require.NoError(t, err)
				assert.False(t, res.Duplicate)
			}
		})

		count, err := eventRepo.Count(ctx, models.AttributionEventFilter{SessionID: &sessionID})
		require.NoError(t, err)
		assert.Equal(t, int64(7), count, "two impressions, one fallback, two explicit, two purchases")

		return nil
	})
	require.NoError(t, err)
}
