package telemetry

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createInvoiceTables(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE invoices (invoice_id INTEGER PRIMARY KEY, customer_name TEXT)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE payments (id INTEGER PRIMARY KEY, invoice_id INTEGER, amount TEXT)`).Error)
}

func TestGormInvoiceMetricsProvider_Empty(t *testing.T) {
	db := setupTelemetryTestDB(t)
	createInvoiceTables(t, db)
	p := NewGormInvoiceMetricsProvider(db)

	count, err := p.CountInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	total, err := p.TotalCollected(context.Background())
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestGormInvoiceMetricsProvider_Aggregates(t *testing.T) {
	db := setupTelemetryTestDB(t)
	createInvoiceTables(t, db)
	require.NoError(t, db.Exec(`INSERT INTO invoices VALUES (1001, 'Default Customer'), (1002, 'Acme')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO payments (invoice_id, amount) VALUES (1001, '100'), (1001, '50.25'), (1002, '10')`).Error)

	p := NewGormInvoiceMetricsProvider(db)

	count, err := p.CountInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	total, err := p.TotalCollected(context.Background())
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("160.25").Equal(total), "got %s", total)
}
