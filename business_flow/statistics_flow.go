// Package businessflow contains use cases for statistics aggregation and export
package businessflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopmorph/Kaleido/app/dto"
	"github.com/shopmorph/Kaleido/models"
	"github.com/shopmorph/Kaleido/repository"
	"github.com/shopmorph/Kaleido/utils"
	"github.com/xuri/excelize/v2"
)

// StatisticsFlow rolls raw attribution events into idempotent daily rows and
// serves them back as structured records or workbooks.
type StatisticsFlow interface {
	AggregateRange(ctx context.Context, from, to time.Time, tenantID *uint) (*dto.AggregationSummary, error)
	ListStatistics(ctx context.Context, req *dto.StatisticsRequest, metadata *ClientMetadata) (*dto.StatisticsResponse, error)
	ExportRange(ctx context.Context, req *dto.StatisticsRequest, metadata *ClientMetadata) ([]byte, error)
}

type StatisticsFlowImpl struct {
	eventRepo  repository.AttributionEventRepository
	statRepo   repository.DailyStatisticRepository
	tenantRepo repository.TenantRepository
}

func NewStatisticsFlow(
	eventRepo repository.AttributionEventRepository,
	statRepo repository.DailyStatisticRepository,
	tenantRepo repository.TenantRepository,
) StatisticsFlow {
	return &StatisticsFlowImpl{
		eventRepo:  eventRepo,
		statRepo:   statRepo,
		tenantRepo: tenantRepo,
	}
}

type rollupKey struct {
	tenantID  uint
	productID string
	caseName  string
	day       time.Time
}

// AggregateRange groups all events in [from, to) by (tenant, product, case,
// day) and inserts one DailyStatistic per group unless a row already exists
// for that key. Backfills and the regular daily job share this code path and
// may overlap freely without double-counting.
func (f *StatisticsFlowImpl) AggregateRange(ctx context.Context, from, to time.Time, tenantID *uint) (*dto.AggregationSummary, error) {
	if !to.After(from) {
		return nil, ErrInvalidDateRange
	}

	events, err := f.eventRepo.ListForAggregation(ctx, from, to, tenantID)
	if err != nil {
		return nil, NewBusinessError("AGGREGATE_RANGE_FAILED", "Failed to list events", err)
	}

	groups := make(map[rollupKey]*models.DailyStatistic)
	for _, ev := range events {
		key := rollupKey{
			tenantID:  ev.TenantID,
			productID: ev.ProductID,
			caseName:  ev.CaseName,
			day:       utils.DayStart(ev.CreatedAt),
		}
		stat, ok := groups[key]
		if !ok {
			stat = &models.DailyStatistic{
				TenantID:  key.tenantID,
				ProductID: key.productID,
				CaseName:  key.caseName,
				Date:      key.day,
			}
			groups[key] = stat
		}

		switch ev.EventType {
		case models.EventTypeImpression:
			stat.Impressions++
		case models.EventTypeAddToCart:
			stat.AddToCarts++
		case models.EventTypePurchase:
			stat.Orders++
			if ev.Revenue != nil {
				stat.Revenue += *ev.Revenue
			}
		}
	}

	// Deterministic insert order keeps logs and tests stable
	keys := make([]rollupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if !a.day.Equal(b.day) {
			return a.day.Before(b.day)
		}
		if a.tenantID != b.tenantID {
			return a.tenantID < b.tenantID
		}
		if a.productID != b.productID {
			return a.productID < b.productID
		}
		return a.caseName < b.caseName
	})

	summary := &dto.AggregationSummary{From: from, To: to, Groups: len(groups)}
	for _, k := range keys {
		stat := groups[k]
		stat.Recompute()
		stat.CreatedAt = utils.UTCNow()
		stat.UpdatedAt = stat.CreatedAt

		inserted, err := f.statRepo.SaveIfAbsent(ctx, stat)
		if err != nil {
			return nil, NewBusinessError("AGGREGATE_RANGE_FAILED", "Failed to persist rollup row", err)
		}
		if inserted {
			summary.RowsWritten++
		} else {
			summary.RowsSkipped++
		}
	}

	return summary, nil
}

// ListStatistics returns rollup rows for a tenant and date range as JSON records
func (f *StatisticsFlowImpl) ListStatistics(ctx context.Context, req *dto.StatisticsRequest, metadata *ClientMetadata) (*dto.StatisticsResponse, error) {
	if !req.To.After(req.From) && !req.To.Equal(req.From) {
		return nil, ErrInvalidDateRange
	}

	tenant, err := f.tenantRepo.ByID(ctx, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("LIST_STATISTICS_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		return nil, ErrTenantNotFound
	}

	rows, err := f.statRepo.ByRange(ctx, req.TenantID, utils.DayStart(req.From), utils.DayStart(req.To))
	if err != nil {
		return nil, NewBusinessError("LIST_STATISTICS_FAILED", "Failed to list statistics", err)
	}

	items := make([]dto.DailyStatisticItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, dto.DailyStatisticItem{
			ProductID:        r.ProductID,
			Case:             r.CaseName,
			Date:             r.Date.Format("2006-01-02"),
			Impressions:      r.Impressions,
			AddToCarts:       r.AddToCarts,
			Orders:           r.Orders,
			Revenue:          r.Revenue,
			ClickThroughRate: r.ClickThroughRate,
			ConversionRate:   r.ConversionRate,
		})
	}

	return &dto.StatisticsResponse{
		TenantID: req.TenantID,
		From:     req.From.Format("2006-01-02"),
		To:       req.To.Format("2006-01-02"),
		Items:    items,
	}, nil
}

// ExportRange produces an XLSX workbook of the rollup rows for download
func (f *StatisticsFlowImpl) ExportRange(ctx context.Context, req *dto.StatisticsRequest, metadata *ClientMetadata) ([]byte, error) {
	res, err := f.ListStatistics(ctx, req, metadata)
	if err != nil {
		return nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "Daily Statistics"
	idx, err := xl.NewSheet(sheet)
	if err != nil {
		return nil, NewBusinessError("EXPORT_RANGE_FAILED", "Failed to create sheet", err)
	}
	xl.SetActiveSheet(idx)
	_ = xl.DeleteSheet("Sheet1")

	header := []any{"Date", "Product", "Case", "Impressions", "Add to Carts", "Orders", "Revenue", "CTR", "Conversion Rate"}
	if err := xl.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, NewBusinessError("EXPORT_RANGE_FAILED", "Failed to write header", err)
	}

	for i, item := range res.Items {
		record := []any{
			item.Date,
			item.ProductID,
			item.Case,
			item.Impressions,
			item.AddToCarts,
			item.Orders,
			item.Revenue,
			fmt.Sprintf("%.4f", item.ClickThroughRate),
			fmt.Sprintf("%.4f", item.ConversionRate),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := xl.SetSheetRow(sheet, cellRef, &record); err != nil {
			return nil, NewBusinessError("EXPORT_RANGE_FAILED", "Failed to write row", err)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return nil, NewBusinessError("EXPORT_RANGE_FAILED", "Failed to serialize workbook", err)
	}
	return buf.Bytes(), nil
}
