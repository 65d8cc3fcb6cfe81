// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/shopmorph/Kaleido/app/dto"
	businessflow "github.com/shopmorph/Kaleido/business_flow"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/repository"
	testingutil "github.com/shopmorph/Kaleido/testing"
	"github.com/shopmorph/Kaleido/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignmentFlow(testDB *testingutil.TestDB) businessflow.AssignmentFlow {
	testRepo := repository.NewImageTestRepository(testDB.DB)
	return businessflow.NewAssignmentFlow(testRepo, nil, nil)
}

func TestGetAssignment_ActiveTest(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAssignmentFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		res, err := flow.GetAssignment(ctx, &dto.AssignmentRequest{
			ProductID: "prod-1",
			SessionID: testingutil.NewSessionID(),
		}, metadata)
		require.NoError(t, err)
		require.True(t, res.Active)
		assert.Equal(t, test.UUID.String(), res.TestID)
		assert.Contains(t, []string{models.CaseBase, models.CaseTest}, res.Case)
		assert.Equal(t, test.ImagesForCase(res.Case), res.Images)
		assert.Equal(t, tenant.ID, res.TenantID)

		return nil
	})
	require.NoError(t, err)
}

func TestGetAssignment_Deterministic(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAssignmentFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		_, err = fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		sessionID := testingutil.NewSessionID()
		req := &dto.AssignmentRequest{ProductID: "prod-1", SessionID: sessionID}

		first, err := flow.GetAssignment(ctx, req, metadata)
		require.NoError(t, err)
		for i := 0; i < 10; i++ {
			again, err := flow.GetAssignment(ctx, req, metadata)
			require.NoError(t, err)
			assert.Equal(t, first.Case, again.Case, "same session always lands in the same arm")
		}

		return nil
	})
	require.NoError(t, err)
}

func TestGetAssignment_ForcedCase(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAssignmentFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		res, err := flow.GetAssignment(ctx, &dto.AssignmentRequest{
			ProductID: "prod-1",
			SessionID: testingutil.NewSessionID(),
			Force:     models.CaseTest,
		}, metadata)
		require.NoError(t, err)
		assert.Equal(t, models.CaseTest, res.Case)
		assert.Equal(t, []string(test.TestImages), res.Images)

		return nil
	})
	require.NoError(t, err)
}

func TestGetAssignment_NoActiveTest(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAssignmentFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		_, err = fixtures.CreateDraftTest(tenant.ID, "prod-draft")
		require.NoError(t, err)

		t.Run("UnknownProduct", func(t *testing.T) {
			res, err := flow.GetAssignment(ctx, &dto.AssignmentRequest{ProductID: "prod-none", SessionID: testingutil.NewSessionID()}, metadata)
			require.NoError(t, err)
			assert.False(t, res.Active)
			assert.Empty(t, res.TestID)
		})

		t.Run("DraftOnly", func(t *testing.T) {
			res, err := flow.GetAssignment(ctx, &dto.AssignmentRequest{ProductID: "prod-draft", SessionID: testingutil.NewSessionID()}, metadata)
			require.NoError(t, err)
			assert.False(t, res.Active)
		})

		t.Run("MissingProductID", func(t *testing.T) {
			res, err := flow.GetAssignment(ctx, &dto.AssignmentRequest{SessionID: testingutil.NewSessionID()}, metadata)
			require.NoError(t, err)
			assert.False(t, res.Active)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestBucketCase(t *testing.T) {
	testUUID := "5a0e8f1c-6d2b-4c3a-9e8f-1c6d2b4c3a9e"

	t.Run("ZeroSplitAlwaysControl", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			c := businessflow.BucketCase(testingutil.NewSessionID(), testUUID, 0, models.CaseBase)
			assert.Equal(t, models.CaseBase, c)
		}
	})

	t.Run("FullSplitAlwaysTest", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			c := businessflow.BucketCase(testingutil.NewSessionID(), testUUID, 100, models.CaseBase)
			assert.Equal(t, models.CaseTest, c)
		}
	})

	t.Run("ControlArmFollowsCurrentCase", func(t *testing.T) {
		// Find a session bucketed into the control arm, then flip the
		// control case: the same session must follow the flip.
		var controlSession string
		for i := 0; i < 200; i++ {
			s := testingutil.NewSessionID()
			if businessflow.BucketCase(s, testUUID, 50, models.CaseBase) == models.CaseBase {
				controlSession = s
				break
			}
		}
		require.NotEmpty(t, controlSession)
		assert.Equal(t, models.CaseTest, businessflow.BucketCase(controlSession, testUUID, 50, models.CaseTest))
	})

	t.Run("SplitRoughlyRespected", func(t *testing.T) {
		assigned := 0
		const n = 2000
		for i := 0; i < n; i++ {
			if businessflow.BucketCase(testingutil.NewSessionID(), testUUID, 30, models.CaseBase) == models.CaseTest {
				assigned++
			}
		}
		ratio := float64(assigned) / n
		assert.InDelta(t, 0.30, ratio, 0.05)
	})
}
