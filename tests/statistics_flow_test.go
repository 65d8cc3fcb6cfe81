// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"bytes"
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
	"github.com/xuri/excelize/v2"
)

func newStatisticsFlow(testDB *testingutil.TestDB) (businessflow.StatisticsFlow, repository.DailyStatisticRepository) {
	eventRepo := repository.NewAttributionEventRepository(testDB.DB)
	statRepo := repository.NewDailyStatisticRepository(testDB.DB)
	tenantRepo := repository.NewTenantRepository(testDB.DB)
	return businessflow.NewStatisticsFlow(eventRepo, statRepo, tenantRepo), statRepo
}

func seedFunnel(t *testing.T, fixtures *testingutil.TestFixtures, test *models.ImageTest, day time.Time) {
	t.Helper()
	// base arm: 3 impressions, 1 add-to-cart, 1 purchase of 25
	for i, s := range []string{"s-aaa11111", "s-bbb22222", "s-ccc33333"} {
		_, err := fixtures.CreateTestEvent(test, s, models.EventTypeImpression, models.CaseBase, nil, day.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	_, err := fixtures.CreateTestEvent(test, "s-aaa11111", models.EventTypeAddToCart, models.CaseBase, nil, day.Add(4*time.Hour))
	require.NoError(t, err)
	_, err = fixtures.CreateTestEvent(test, "s-aaa11111", models.EventTypePurchase, models.CaseBase, utils.ToPtr(25.0), day.Add(5*time.Hour))
	require.NoError(t, err)

	// test arm: 2 impressions
	for i, s := range []string{"s-ddd44444", "s-eee55555"} {
		_, err := fixtures.CreateTestEvent(test, s, models.EventTypeImpression, models.CaseTest, nil, day.Add(time.Duration(6+i)*time.Hour))
		require.NoError(t, err)
	}
}

func TestAggregateRange_GroupsByCaseAndDay(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, statRepo := newStatisticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		day := utils.DayStart(utils.UTCNow().Add(-24 * time.Hour))
		seedFunnel(t, fixtures, test, day)

		summary, err := flow.AggregateRange(ctx, day, day.Add(24*time.Hour), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Groups)
		assert.Equal(t, 2, summary.RowsWritten)
		assert.Equal(t, 0, summary.RowsSkipped)

		rows, err := statRepo.ByRange(ctx, tenant.ID, day, day)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		byCase := map[string]*models.DailyStatistic{}
		for _, r := range rows {
			byCase[r.CaseName] = r
		}

		base := byCase[models.CaseBase]
		require.NotNil(t, base)
		assert.Equal(t, int64(3), base.Impressions)
		assert.Equal(t, int64(1), base.AddToCarts)
		assert.Equal(t, int64(1), base.Orders)
		assert.InDelta(t, 25.0, base.Revenue, 0.001)
		assert.InDelta(t, 1.0/3.0, base.ClickThroughRate, 0.0001)
		assert.InDelta(t, 1.0/3.0, base.ConversionRate, 0.0001)

		testArm := byCase[models.CaseTest]
		require.NotNil(t, testArm)
		assert.Equal(t, int64(2), testArm.Impressions)
		assert.Equal(t, int64(0), testArm.AddToCarts)
		assert.Equal(t, float64(0), testArm.ConversionRate)

		return nil
	})
	require.NoError(t, err)
}

func TestAggregateRange_Idempotent(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, statRepo := newStatisticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		day := utils.DayStart(utils.UTCNow().Add(-24 * time.Hour))
		seedFunnel(t, fixtures, test, day)

		first, err := flow.AggregateRange(ctx, day, day.Add(24*time.Hour), nil)
		require.NoError(t, err)
		assert.Equal(t, 2, first.RowsWritten)

		// Overlapping re-run writes nothing new
		second, err := flow.AggregateRange(ctx, day.Add(-24*time.Hour), day.Add(48*time.Hour), nil)
		require.NoError(t, err)
		assert.Equal(t, 0, second.RowsWritten)
		assert.Equal(t, 2, second.RowsSkipped)

		count, err := statRepo.Count(ctx, models.DailyStatisticFilter{TenantID: &tenant.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		return nil
	})
	require.NoError(t, err)
}

func TestAggregateRange_InvalidRange(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newStatisticsFlow(testDB)
		ctx := testingutil.CreateTestContext()

		now := utils.UTCNow()
		_, err := flow.AggregateRange(ctx, now, now, nil)
		assert.ErrorIs(t, err, businessflow.ErrInvalidDateRange)

		return nil
	})
	require.NoError(t, err)
}

func TestListStatistics(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newStatisticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		day := utils.DayStart(utils.UTCNow().Add(-24 * time.Hour))
		seedFunnel(t, fixtures, test, day)
		_, err = flow.AggregateRange(ctx, day, day.Add(24*time.Hour), nil)
		require.NoError(t, err)

		res, err := flow.ListStatistics(ctx, &dto.StatisticsRequest{
			TenantID: tenant.ID,
			From:     day,
			To:       day.Add(24 * time.Hour),
		}, metadata)
		require.NoError(t, err)
		assert.Equal(t, tenant.ID, res.TenantID)
		require.Len(t, res.Items, 2)
		assert.Equal(t, day.Format("2006-01-02"), res.Items[0].Date)

		t.Run("UnknownTenant", func(t *testing.T) {
			_, err := flow.ListStatistics(ctx, &dto.StatisticsRequest{
				TenantID: 99999,
				From:     day,
				To:       day.Add(24 * time.Hour),
			}, metadata)
			assert.True(t, businessflow.IsUnknownTenant(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestExportRange_ProducesWorkbook(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, _ := newStatisticsFlow(testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		test, err := fixtures.CreateActiveTest(tenant.ID, "prod-1", utils.UTCNow().Add(time.Hour))
		require.NoError(t, err)

		day := utils.DayStart(utils.UTCNow().Add(-24 * time.Hour))
		seedFunnel(t, fixtures, test, day)
		_, err = flow.AggregateRange(ctx, day, day.Add(24*time.Hour), nil)
		require.NoError(t, err)

		content, err := flow.ExportRange(ctx, &dto.StatisticsRequest{
			TenantID: tenant.ID,
			From:     day,
			To:       day.Add(24 * time.Hour),
		}, metadata)
		require.NoError(t, err)
		require.NotEmpty(t, content)

		xl, err := excelize.OpenReader(bytes.NewReader(content))
		require.NoError(t, err)
		defer xl.Close()

		rows, err := xl.GetRows("Daily Statistics")
		require.NoError(t, err)
		require.Len(t, rows, 3, "header plus one row per case")
		assert.Equal(t, "Date", rows[0][0])
		assert.Equal(t, "prod-1", rows[1][1])

		// Re-export over the same range succeeds with identical shape
		again, err := flow.ExportRange(ctx, &dto.StatisticsRequest{
			TenantID: tenant.ID,
			From:     day,
			To:       day.Add(24 * time.Hour),
		}, metadata)
		require.NoError(t, err)
		assert.NotEmpty(t, again)

		return nil
	})
	require.NoError(t, err)
}
