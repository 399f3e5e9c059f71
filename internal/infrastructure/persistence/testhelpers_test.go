package persistence

import (
	"testing"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupInvoicingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func newTestInvoice(t *testing.T, id int64, customer string) *invoicing.Invoice {
	t.Helper()
	inv, err := invoicing.NewInvoice(id, customer)
	require.NoError(t, err)
	return inv
}

func newTestCard(t *testing.T, id int64, amount string) *invoicing.CardMethod {
	t.Helper()
	card, err := invoicing.NewCardMethod(id, decimal.RequireFromString(amount), "4111111111111111", "Jane Doe", "12/27", 123)
	require.NoError(t, err)
	return card
}

func newTestCheque(t *testing.T, id int64, amount string) *invoicing.ChequeMethod {
	t.Helper()
	cheque, err := invoicing.NewChequeMethod(id, decimal.RequireFromString(amount), 889900, "First Bank", "John Roe")
	require.NoError(t, err)
	return cheque
}
