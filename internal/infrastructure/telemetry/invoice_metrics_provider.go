package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceMetricsProvider implements InvoiceMetricsProvider with aggregate
// queries over the invoices and payments tables.
type GormInvoiceMetricsProvider struct {
	db *gorm.DB
}

// NewGormInvoiceMetricsProvider creates a new GormInvoiceMetricsProvider.
func NewGormInvoiceMetricsProvider(db *gorm.DB) *GormInvoiceMetricsProvider {
	return &GormInvoiceMetricsProvider{db: db}
}

// CountInvoices returns the number of rows in invoices.
func (p *GormInvoiceMetricsProvider) CountInvoices(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).Table("invoices").Count(&count).Error
	return count, err
}

// TotalCollected returns the sum of payments.amount, zero when there are none.
func (p *GormInvoiceMetricsProvider) TotalCollected(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := p.db.WithContext(ctx).
		Table("payments").
		Select("SUM(amount)").
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
