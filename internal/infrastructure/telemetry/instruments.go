package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrHTTPMethod     = attribute.Key("http.method")
	AttrHTTPStatusCode = attribute.Key("http.status_code")
	AttrHTTPRoute      = attribute.Key("http.route")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")

	AttrPaymentType = attribute.Key("payment_type")
)

// Bucket boundaries
var (
	// HTTPDurationBuckets covers request latency in seconds
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	// DBDurationBuckets covers query latency in seconds
	DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	// AmountBuckets covers payment amounts in currency units
	AmountBuckets = []float64{1, 10, 50, 100, 500, 1000, 5000, 10000, 50000}
)

func wrapInstrumentErr(kind, name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("failed to create %s %s: %w", kind, name, err)
}

// Counter counts events such as created invoices or applied payments.
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a Counter.
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, wrapInstrumentErr("counter", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by n.
func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one.
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// AmountCounter accumulates monetary amounts. Amounts are exported as
// float64, so the series is approximate for very large totals.
type AmountCounter struct {
	counter metric.Float64Counter
}

// NewAmountCounter creates an AmountCounter.
func NewAmountCounter(meter metric.Meter, name, description string) (*AmountCounter, error) {
	c, err := meter.Float64Counter(name, metric.WithDescription(description), metric.WithUnit("{currency}"))
	if err != nil {
		return nil, wrapInstrumentErr("amount counter", name, err)
	}
	return &AmountCounter{counter: c}, nil
}

// Add adds amount. Negative amounts are ignored.
func (c *AmountCounter) Add(ctx context.Context, amount decimal.Decimal, attrs ...attribute.KeyValue) {
	if amount.IsNegative() {
		return
	}
	c.counter.Add(ctx, amount.InexactFloat64(), metric.WithAttributes(attrs...))
}

// Histogram records a distribution of latencies or amounts.
type Histogram struct {
	histogram metric.Float64Histogram
}

// HistogramOpts configures a Histogram.
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64
}

// NewHistogram creates a Histogram.
func NewHistogram(meter metric.Meter, opts HistogramOpts) (*Histogram, error) {
	hOpts := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Boundaries) > 0 {
		hOpts = append(hOpts, metric.WithExplicitBucketBoundaries(opts.Boundaries...))
	}
	h, err := meter.Float64Histogram(opts.Name, hOpts...)
	if err != nil {
		return nil, wrapInstrumentErr("histogram", opts.Name, err)
	}
	return &Histogram{histogram: h}, nil
}

// Record records value.
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// RecordAmount records a monetary amount.
func (h *Histogram) RecordAmount(ctx context.Context, amount decimal.Decimal, attrs ...attribute.KeyValue) {
	h.Record(ctx, amount.InexactFloat64(), attrs...)
}

// Gauge samples a current integer value such as the number of stored invoices.
type Gauge struct {
	gauge metric.Int64Gauge
}

// NewGauge creates a Gauge.
func NewGauge(meter metric.Meter, name, description, unit string) (*Gauge, error) {
	g, err := meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, wrapInstrumentErr("gauge", name, err)
	}
	return &Gauge{gauge: g}, nil
}

// Record records the current value.
func (g *Gauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	g.gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}

// AmountGauge samples a current monetary amount such as the collected total.
type AmountGauge struct {
	gauge metric.Float64Gauge
}

// NewAmountGauge creates an AmountGauge.
func NewAmountGauge(meter metric.Meter, name, description string) (*AmountGauge, error) {
	g, err := meter.Float64Gauge(name, metric.WithDescription(description), metric.WithUnit("{currency}"))
	if err != nil {
		return nil, wrapInstrumentErr("amount gauge", name, err)
	}
	return &AmountGauge{gauge: g}, nil
}

// Record records the current amount.
func (g *AmountGauge) Record(ctx context.Context, amount decimal.Decimal, attrs ...attribute.KeyValue) {
	g.gauge.Record(ctx, amount.InexactFloat64(), metric.WithAttributes(attrs...))
}
