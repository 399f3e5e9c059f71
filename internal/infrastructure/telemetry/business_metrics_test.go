package telemetry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

type stubInvoiceProvider struct {
	count    int64
	total    decimal.Decimal
	countErr error
	calls    atomic.Int32
}

func (p *stubInvoiceProvider) CountInvoices(ctx context.Context) (int64, error) {
	p.calls.Add(1)
	return p.count, p.countErr
}

func (p *stubInvoiceProvider) TotalCollected(ctx context.Context) (decimal.Decimal, error) {
	return p.total, nil
}

func TestNewBusinessMetrics_NilMeter(t *testing.T) {
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Logger: zap.NewNop()})

	require.Error(t, err)
	assert.Nil(t, bm)
	assert.Equal(t, "NewBusinessMetrics: meter cannot be nil", err.Error())
}

func TestBusinessMetrics_InvoiceCounters(t *testing.T) {
	meter, reader := newTestMeter(t)
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordInvoiceCreated(ctx)
	bm.RecordInvoiceCreated(ctx)
	bm.RecordInvoiceDeleted(ctx)

	m, ok := findMetric(t, reader, "invoicing_invoice_created_total")
	require.True(t, ok)
	assert.Equal(t, int64(2), m.Data.(metricdata.Sum[int64]).DataPoints[0].Value)

	m, ok = findMetric(t, reader, "invoicing_invoice_deleted_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), m.Data.(metricdata.Sum[int64]).DataPoints[0].Value)
}

func TestBusinessMetrics_RecordPayment(t *testing.T) {
	meter, reader := newTestMeter(t)
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()
	bm.RecordPayment(ctx, "Card", decimal.NewFromInt(100))
	bm.RecordPayment(ctx, "Cheque", decimal.NewFromInt(50))
	bm.RecordPayment(ctx, "Card", decimal.RequireFromString("0.5"))
	bm.RecordPaymentRemoved(ctx, "Card")

	m, ok := findMetric(t, reader, "invoicing_payment_total")
	require.True(t, ok)
	counts := map[string]int64{}
	for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
		v, _ := dp.Attributes.Value(telemetry.AttrPaymentType)
		counts[v.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"Card": 2, "Cheque": 1}, counts)

	m, ok = findMetric(t, reader, "invoicing_payment_amount_total")
	require.True(t, ok)
	amounts := map[string]float64{}
	for _, dp := range m.Data.(metricdata.Sum[float64]).DataPoints {
		v, _ := dp.Attributes.Value(telemetry.AttrPaymentType)
		amounts[v.AsString()] = dp.Value
	}
	assert.InDelta(t, 100.5, amounts["Card"], 1e-9)
	assert.InDelta(t, 50.0, amounts["Cheque"], 1e-9)

	m, ok = findMetric(t, reader, "invoicing_payment_removed_total")
	require.True(t, ok)
	assert.Equal(t, int64(1), m.Data.(metricdata.Sum[int64]).DataPoints[0].Value)
}

func TestBusinessMetrics_CollectOnce(t *testing.T) {
	meter, reader := newTestMeter(t)
	provider := &stubInvoiceProvider{count: 3, total: decimal.RequireFromString("150.75")}
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:           meter,
		InvoiceProvider: provider,
	})
	require.NoError(t, err)

	bm.CollectOnce(context.Background())

	m, ok := findMetric(t, reader, "invoicing_invoice_count")
	require.True(t, ok)
	assert.Equal(t, int64(3), m.Data.(metricdata.Gauge[int64]).DataPoints[0].Value)

	m, ok = findMetric(t, reader, "invoicing_collected_amount")
	require.True(t, ok)
	assert.InDelta(t, 150.75, m.Data.(metricdata.Gauge[float64]).DataPoints[0].Value, 1e-9)
}

func TestBusinessMetrics_CollectOnceToleratesProviderErrors(t *testing.T) {
	meter, reader := newTestMeter(t)
	provider := &stubInvoiceProvider{countErr: errors.New("db down"), total: decimal.NewFromInt(10)}
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:           meter,
		InvoiceProvider: provider,
	})
	require.NoError(t, err)

	bm.CollectOnce(context.Background())

	_, ok := findMetric(t, reader, "invoicing_invoice_count")
	assert.False(t, ok)
	_, ok = findMetric(t, reader, "invoicing_collected_amount")
	assert.True(t, ok)
}

func TestBusinessMetrics_PeriodicCollection(t *testing.T) {
	meter, _ := newTestMeter(t)
	provider := &stubInvoiceProvider{count: 1, total: decimal.Zero}
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:           meter,
		InvoiceProvider: provider,
	})
	require.NoError(t, err)

	bm.StartPeriodicCollection(context.Background(), 10*time.Millisecond)
	bm.StartPeriodicCollection(context.Background(), 10*time.Millisecond)

	assert.Eventually(t, func() bool { return provider.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	bm.Stop()
	bm.Stop()
	after := provider.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, provider.calls.Load())
}

func TestBusinessMetrics_StopWithoutStart(t *testing.T) {
	meter, _ := newTestMeter(t)
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: meter})
	require.NoError(t, err)

	assert.NotPanics(t, bm.Stop)
}
