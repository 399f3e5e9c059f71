package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

// newTestMeter returns a meter backed by a manual reader
func newTestMeter(t *testing.T) (metric.Meter, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return provider.Meter("test"), reader
}

// findMetric collects from reader and returns the metric with the given name
func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:     false,
		ServiceName: "invoicing-test",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.Equal(t, 60*time.Second, mp.ExportInterval())
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	meter, reader := newTestMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewCounter(meter, "test_total", "test counter", "{ops}")
	require.NoError(t, err)

	counter.Inc(ctx)
	counter.Add(ctx, 4)

	m, ok := findMetric(t, reader, "test_total")
	require.True(t, ok)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(5), sum.DataPoints[0].Value)
}

func TestAmountCounter(t *testing.T) {
	meter, reader := newTestMeter(t)
	ctx := context.Background()

	counter, err := telemetry.NewAmountCounter(meter, "amount_total", "amounts")
	require.NoError(t, err)

	card := telemetry.AttrPaymentType.String("Card")
	counter.Add(ctx, decimal.RequireFromString("100.25"), card)
	counter.Add(ctx, decimal.NewFromInt(50), card)
	counter.Add(ctx, decimal.NewFromInt(-10), card)

	m, ok := findMetric(t, reader, "amount_total")
	require.True(t, ok)
	assert.Equal(t, "{currency}", m.Unit)
	sum := m.Data.(metricdata.Sum[float64])
	require.Len(t, sum.DataPoints, 1)
	assert.InDelta(t, 150.25, sum.DataPoints[0].Value, 1e-9)
}

func TestHistogram(t *testing.T) {
	meter, reader := newTestMeter(t)
	ctx := context.Background()

	h, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:       "latency_seconds",
		Unit:       "s",
		Boundaries: telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)

	h.RecordDuration(ctx, 20*time.Millisecond, attribute.String("route", "/api/v1/invoices"))
	h.Record(ctx, 0.5, attribute.String("route", "/api/v1/invoices"))
	h.RecordAmount(ctx, decimal.RequireFromString("0.75"), attribute.String("route", "/api/v1/invoices"))

	m, ok := findMetric(t, reader, "latency_seconds")
	require.True(t, ok)
	hist := m.Data.(metricdata.Histogram[float64])
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(3), hist.DataPoints[0].Count)
	assert.InDelta(t, 1.27, hist.DataPoints[0].Sum, 1e-9)
	assert.Equal(t, telemetry.HTTPDurationBuckets, hist.DataPoints[0].Bounds)
}

func TestGauges(t *testing.T) {
	meter, reader := newTestMeter(t)
	ctx := context.Background()

	g, err := telemetry.NewGauge(meter, "open_things", "things", "{things}")
	require.NoError(t, err)
	ag, err := telemetry.NewAmountGauge(meter, "collected", "collected amount")
	require.NoError(t, err)

	g.Record(ctx, 3)
	g.Record(ctx, 7)
	ag.Record(ctx, decimal.RequireFromString("1.5"))

	m, ok := findMetric(t, reader, "open_things")
	require.True(t, ok)
	assert.Equal(t, int64(7), m.Data.(metricdata.Gauge[int64]).DataPoints[0].Value)

	m, ok = findMetric(t, reader, "collected")
	require.True(t, ok)
	assert.Equal(t, 1.5, m.Data.(metricdata.Gauge[float64]).DataPoints[0].Value)
}
