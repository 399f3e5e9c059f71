package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics tracks invoice and payment activity.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	invoiceCreatedTotal *Counter
	invoiceDeletedTotal *Counter
	paymentTotal        *Counter
	paymentRemovedTotal *Counter
	paymentAmountTotal  *AmountCounter
	paymentAmount       *Histogram

	invoiceCount   *Gauge
	collectedTotal *AmountGauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
	wg          sync.WaitGroup

	invoiceProvider InvoiceMetricsProvider
}

// InvoiceMetricsProvider exposes aggregate invoice state for periodic gauges
// without tying telemetry to a particular store.
type InvoiceMetricsProvider interface {
	// CountInvoices returns the number of stored invoices
	CountInvoices(ctx context.Context) (int64, error)

	// TotalCollected returns the sum of all payment amounts across invoices
	TotalCollected(ctx context.Context) (decimal.Decimal, error)
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	InvoiceProvider InvoiceMetricsProvider
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:           cfg.Meter,
		logger:          logger,
		stopChan:        make(chan struct{}),
		invoiceProvider: cfg.InvoiceProvider,
	}

	var err error
	if bm.invoiceCreatedTotal, err = NewCounter(cfg.Meter,
		"invoicing_invoice_created_total", "Total number of invoices created", "{invoices}"); err != nil {
		return nil, err
	}
	if bm.invoiceDeletedTotal, err = NewCounter(cfg.Meter,
		"invoicing_invoice_deleted_total", "Total number of invoices deleted", "{invoices}"); err != nil {
		return nil, err
	}
	if bm.paymentTotal, err = NewCounter(cfg.Meter,
		"invoicing_payment_total", "Total number of payments applied", "{payments}"); err != nil {
		return nil, err
	}
	if bm.paymentRemovedTotal, err = NewCounter(cfg.Meter,
		"invoicing_payment_removed_total", "Total number of payments removed", "{payments}"); err != nil {
		return nil, err
	}
	if bm.paymentAmountTotal, err = NewAmountCounter(cfg.Meter,
		"invoicing_payment_amount_total", "Sum of applied payment amounts"); err != nil {
		return nil, err
	}
	if bm.paymentAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "invoicing_payment_amount",
		Description: "Distribution of applied payment amounts",
		Unit:        "{currency}",
		Boundaries:  AmountBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.invoiceCount, err = NewGauge(cfg.Meter,
		"invoicing_invoice_count", "Number of invoices currently stored", "{invoices}"); err != nil {
		return nil, err
	}
	if bm.collectedTotal, err = NewAmountGauge(cfg.Meter,
		"invoicing_collected_amount", "Sum of payments across all stored invoices"); err != nil {
		return nil, err
	}

	return bm, nil
}

// RecordInvoiceCreated counts a created invoice.
func (bm *BusinessMetrics) RecordInvoiceCreated(ctx context.Context) {
	bm.invoiceCreatedTotal.Inc(ctx)
}

// RecordInvoiceDeleted counts a deleted invoice.
func (bm *BusinessMetrics) RecordInvoiceDeleted(ctx context.Context) {
	bm.invoiceDeletedTotal.Inc(ctx)
}

// RecordPayment counts an applied payment and its amount, labelled by payment type.
func (bm *BusinessMetrics) RecordPayment(ctx context.Context, paymentType string, amount decimal.Decimal) {
	attr := AttrPaymentType.String(paymentType)
	bm.paymentTotal.Inc(ctx, attr)
	bm.paymentAmountTotal.Add(ctx, amount, attr)
	bm.paymentAmount.RecordAmount(ctx, amount, attr)
}

// RecordPaymentRemoved counts a removed payment.
func (bm *BusinessMetrics) RecordPaymentRemoved(ctx context.Context, paymentType string) {
	bm.paymentRemovedTotal.Inc(ctx, AttrPaymentType.String(paymentType))
}

// RecordInvoiceCount records the current number of invoices.
func (bm *BusinessMetrics) RecordInvoiceCount(ctx context.Context, count int64) {
	bm.invoiceCount.Record(ctx, count)
}

// RecordCollectedTotal records the current sum of all payments.
func (bm *BusinessMetrics) RecordCollectedTotal(ctx context.Context, total decimal.Decimal) {
	bm.collectedTotal.Record(ctx, total)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection samples the gauges every interval (default 5 minutes)
// until Stop is called or ctx is cancelled. Only the first call has effect.
func (bm *BusinessMetrics) StartPeriodicCollection(ctx context.Context, interval time.Duration) {
	bm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		bm.wg.Add(1)
		go bm.runPeriodicCollection(ctx, interval)
	})
}

func (bm *BusinessMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	defer bm.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bm.CollectOnce(ctx)

	for {
		select {
		case <-bm.stopChan:
			bm.logger.Info("Stopping periodic business metrics collection")
			return
		case <-ctx.Done():
			bm.logger.Info("Context cancelled, stopping periodic business metrics collection")
			return
		case <-ticker.C:
			bm.CollectOnce(ctx)
		}
	}
}

// CollectOnce samples the gauges from the invoice provider.
func (bm *BusinessMetrics) CollectOnce(ctx context.Context) {
	if bm.invoiceProvider == nil {
		bm.logger.Debug("No invoice provider configured, skipping gauge collection")
		return
	}

	count, err := bm.invoiceProvider.CountInvoices(ctx)
	if err != nil {
		bm.logger.Warn("Failed to count invoices for metrics", zap.Error(err))
	} else {
		bm.RecordInvoiceCount(ctx, count)
	}

	total, err := bm.invoiceProvider.TotalCollected(ctx)
	if err != nil {
		bm.logger.Warn("Failed to sum payments for metrics", zap.Error(err))
	} else {
		bm.RecordCollectedTotal(ctx, total)
	}
}

// Stop stops periodic collection and waits for the collector to exit.
func (bm *BusinessMetrics) Stop() {
	bm.stopOnce.Do(func() {
		close(bm.stopChan)
	})
	bm.wg.Wait()
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
