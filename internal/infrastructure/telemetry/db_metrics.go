package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig controls statement and connection pool metrics.
type DBMetricsConfig struct {
	Enabled            bool
	SlowQueryThreshold time.Duration
}

func DefaultDBMetricsConfig() DBMetricsConfig {
	return DBMetricsConfig{
		Enabled:            true,
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// DBMetrics counts and times statements and reports connection pool state.
// Pool gauges are observed on each collection, so there is no sampling loop.
type DBMetrics struct {
	meter     metric.Meter
	slowAfter time.Duration

	queries  *Counter
	failures *Counter
	slow     *Counter
	latency  *Histogram

	mu   sync.Mutex
	pool metric.Registration
}

func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig) (*DBMetrics, error) {
	m := &DBMetrics{meter: meter, slowAfter: cfg.SlowQueryThreshold}
	if m.slowAfter <= 0 {
		m.slowAfter = DefaultDBMetricsConfig().SlowQueryThreshold
	}

	var err error
	if m.queries, err = NewCounter(meter, "db_query_total", "Statements executed by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.failures, err = NewCounter(meter, "db_query_error_total", "Statements that failed, by operation", "{query}"); err != nil {
		return nil, err
	}
	if m.slow, err = NewCounter(meter, "db_slow_query_total", "Statements over the slow threshold, by table", "{query}"); err != nil {
		return nil, err
	}
	m.latency, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Statement latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordQuery records one finished statement. gorm.ErrRecordNotFound is not
// a failure: a missing invoice is an ordinary answer.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, elapsed time.Duration, err error) {
	op := strings.ToUpper(operation)
	if op == "" {
		op = "UNKNOWN"
	}
	opAttr := AttrDBOperation.String(op)

	m.queries.Inc(ctx, opAttr)
	m.latency.RecordDuration(ctx, elapsed, opAttr)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.failures.Inc(ctx, opAttr)
	}
	if elapsed > m.slowAfter {
		if table == "" {
			table = "unknown"
		}
		m.slow.Inc(ctx, AttrDBTable.String(table))
	}
}

// ObservePool reports sqlDB's pool statistics on every collection. A second
// call replaces the observed pool.
func (m *DBMetrics) ObservePool(sqlDB *sql.DB) error {
	conns, err := m.meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return wrapInstrumentErr("gauge", "db_pool_connections", err)
	}
	maxOpen, err := m.meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured pool size limit"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return wrapInstrumentErr("gauge", "db_pool_connections_max", err)
	}
	waits, err := m.meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Times a caller waited for a free connection"),
		metric.WithUnit("{wait}"))
	if err != nil {
		return wrapInstrumentErr("counter", "db_pool_wait_total", err)
	}

	reg, err := m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := sqlDB.Stats()
		o.ObserveInt64(maxOpen, int64(stats.MaxOpenConnections))
		o.ObserveInt64(conns, int64(stats.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(stats.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(stats.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		o.ObserveInt64(waits, stats.WaitCount)
		return nil
	}, conns, maxOpen, waits)
	if err != nil {
		return fmt.Errorf("failed to register pool callback: %w", err)
	}

	m.mu.Lock()
	prev := m.pool
	m.pool = reg
	m.mu.Unlock()
	if prev != nil {
		return prev.Unregister()
	}
	return nil
}

// Stop stops observing the pool. Safe to call more than once.
func (m *DBMetrics) Stop() {
	m.mu.Lock()
	reg := m.pool
	m.pool = nil
	m.mu.Unlock()
	if reg != nil {
		_ = reg.Unregister()
	}
}

// DBMetricsPlugin feeds every gorm statement into DBMetrics.
type DBMetricsPlugin struct {
	metrics *DBMetrics
}

func NewDBMetricsPlugin(metrics *DBMetrics) *DBMetricsPlugin {
	return &DBMetricsPlugin{metrics: metrics}
}

// Name implements gorm.Plugin.
func (p *DBMetricsPlugin) Name() string {
	return "db_metrics"
}

// Initialize implements gorm.Plugin.
func (p *DBMetricsPlugin) Initialize(db *gorm.DB) error {
	return registerAround(db, "db_metrics", markQueryStart, func(tx *gorm.DB, verb string) {
		ctx := tx.Statement.Context
		elapsed, _ := queryElapsed(ctx)
		if ctx == nil {
			ctx = context.Background()
		}
		p.metrics.RecordQuery(ctx, verb, tx.Statement.Table, elapsed, tx.Error)
	})
}

// RegisterDBMetrics builds DBMetrics on the "db.client" meter, installs the
// gorm plugin and starts observing db's pool. It returns nil when metrics are
// off. Stop the result at shutdown.
func RegisterDBMetrics(db *gorm.DB, meterProvider *MeterProvider, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if !cfg.Enabled || meterProvider == nil || !meterProvider.IsEnabled() {
		return nil, nil
	}

	m, err := NewDBMetrics(meterProvider.Meter("db.client"), cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Use(NewDBMetricsPlugin(m)); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := m.ObservePool(sqlDB); err != nil {
		return nil, err
	}

	logger.Info("Database metrics registered", zap.Duration("slow_query_threshold", m.slowAfter))
	return m, nil
}
