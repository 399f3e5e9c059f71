package migration

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/erp/invoicing/internal/domain/invoicing"
	"github.com/erp/invoicing/internal/domain/shared"
	"github.com/erp/invoicing/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newSQLiteMigrator(t *testing.T, path string) *Migrator {
	t.Helper()
	db, err := Open(DialectSQLite, path)
	require.NoError(t, err)
	m, err := New(db, DialectSQLite, "", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestEmbeddedSource_UnknownDialect(t *testing.T) {
	_, err := EmbeddedSource("mysql")
	require.Error(t, err)

	_, err = Open("mysql", "")
	require.Error(t, err)
}

func TestMigrator_UpDownSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoicing.db")
	m := newSQLiteMigrator(t, path)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(3), version)

	// second run is a no-op
	require.NoError(t, m.Up())

	require.NoError(t, m.Steps(-1))
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)

	require.NoError(t, m.GoTo(3))
	require.NoError(t, m.GoTo(3))

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	require.NoError(t, m.Down())
}

func TestMigrator_Force(t *testing.T) {
	m := newSQLiteMigrator(t, filepath.Join(t.TempDir(), "force.db"))

	require.NoError(t, m.Force(2))
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestMigrateUp_SchemaServesRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.db")
	require.NoError(t, MigrateUp(DialectSQLite, path, zap.NewNop()))

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	ctx := context.Background()
	repo := persistence.NewGormInvoiceRepository(db)

	inv, err := invoicing.NewInvoice(1001, "Default Customer")
	require.NoError(t, err)
	amount := decimal.RequireFromString("1234567890.123456789")
	card, err := invoicing.NewCardMethod(1001, amount, "4111111111111111", "Jane Doe", "12/27", 123)
	require.NoError(t, err)
	inv.AddPayment(card)
	require.NoError(t, repo.Create(ctx, inv))

	loaded, err := repo.FindByID(ctx, 1001)
	require.NoError(t, err)
	assert.True(t, loaded.TotalAmount().Equal(amount), "got %s", loaded.TotalAmount())
	require.Len(t, loaded.Payments(), 1)
	assert.Equal(t, invoicing.PaymentTypeCard, loaded.Payments()[0].PaymentType())

	seq := persistence.NewGormSequence(db, shared.SequencePayment, shared.DefaultSequenceStart)
	next, err := seq.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), next)

	// idempotent on an up-to-date database
	require.NoError(t, MigrateUp(DialectSQLite, path, zap.NewNop()))
}
