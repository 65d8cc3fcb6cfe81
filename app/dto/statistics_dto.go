package dto

import "time"

// StatisticsRequest addresses rollup rows by tenant and date range
type StatisticsRequest struct {
	TenantID uint      `json:"tenant_id" validate:"required"`
	From     time.Time `json:"from" validate:"required"`
	To       time.Time `json:"to" validate:"required"`
}

// DailyStatisticItem is one per-day, per-product, per-case rollup record
type DailyStatisticItem struct {
	ProductID        string  `json:"product_id"`
	Case             string  `json:"case"`
	Date             string  `json:"date"`
	Impressions      int64   `json:"impressions"`
	AddToCarts       int64   `json:"add_to_carts"`
	Orders           int64   `json:"orders"`
	Revenue          float64 `json:"revenue"`
	ClickThroughRate float64 `json:"click_through_rate"`
	ConversionRate   float64 `json:"conversion_rate"`
}

// StatisticsResponse is the JSON export of rollup rows
type StatisticsResponse struct {
	TenantID uint                 `json:"tenant_id"`
	From     string               `json:"from"`
	To       string               `json:"to"`
	Items    []DailyStatisticItem `json:"items"`
}

// AggregationSummary reports one aggregation run
type AggregationSummary struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Groups      int       `json:"groups"`
	RowsWritten int       `json:"rows_written"`
	RowsSkipped int       `json:"rows_skipped"`
}
