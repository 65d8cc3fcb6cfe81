package models

import (
	"time"
)

// DailyStatistic is one idempotent per-day, per-product, per-case rollup row.
// Uniqueness over (tenant, product, case, date) is what makes the aggregator
// safely re-runnable over overlapping ranges.
type DailyStatistic struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	TenantID         uint      `gorm:"not null;uniqueIndex:uk_daily_statistics_key" json:"tenant_id"`
	ProductID        string    `gorm:"size:255;not null;uniqueIndex:uk_daily_statistics_key" json:"product_id"`
	CaseName         string    `gorm:"column:case_name;size:10;not null;uniqueIndex:uk_daily_statistics_key" json:"case"`
	Date             time.Time `gorm:"type:date;not null;uniqueIndex:uk_daily_statistics_key;index:idx_daily_statistics_date" json:"date"`
	Impressions      int64     `gorm:"not null;default:0" json:"impressions"`
	AddToCarts       int64     `gorm:"not null;default:0" json:"add_to_carts"`
	Orders           int64     `gorm:"not null;default:0" json:"orders"`
	Revenue          float64   `gorm:"not null;default:0" json:"revenue"`
	ClickThroughRate float64   `gorm:"not null;default:0" json:"click_through_rate"`
	ConversionRate   float64   `gorm:"not null;default:0" json:"conversion_rate"`
	CreatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (DailyStatistic) TableName() string {
	return "daily_statistics"
}

// DailyStatisticFilter represents filter criteria for rollup queries
type DailyStatisticFilter struct {
	ID         *uint
	TenantID   *uint
	ProductID  *string
	CaseName   *string
	Date       *time.Time
	DateAfter  *time.Time // date >= value
	DateBefore *time.Time // date <= value
}

// Recompute refreshes the derived rates from the raw counters
func (d *DailyStatistic) Recompute() {
	if d.Impressions > 0 {
		d.ClickThroughRate = float64(d.AddToCarts) / float64(d.Impressions)
		d.ConversionRate = float64(d.Orders) / float64(d.Impressions)
	} else {
		d.ClickThroughRate = 0
		d.ConversionRate = 0
	}
}
