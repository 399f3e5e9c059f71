package middleware

import (
	"time"

	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// HTTPMetricsConfig controls the request metrics middleware.
type HTTPMetricsConfig struct {
	MeterProvider *telemetry.MeterProvider
	Enabled       bool
	// Logger reports instrument setup failures. Optional.
	Logger *zap.Logger
}

const unmatchedRoute = "unknown"

var bodySizeBuckets = []float64{64, 256, 1024, 4096, 16384, 65536, 262144, 1048576}

// requestInstruments are the per-request server instruments.
type requestInstruments struct {
	total    *telemetry.Counter
	failed   *telemetry.Counter
	latency  *telemetry.Histogram
	reqBody  *telemetry.Histogram
	respBody *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newRequestInstruments(meter metric.Meter) (*requestInstruments, error) {
	ri := &requestInstruments{}
	var err error

	counters := []struct {
		dst        **telemetry.Counter
		name, desc string
	}{
		{&ri.total, "http_server_request_total", "HTTP requests served"},
		{&ri.failed, "http_server_error_total", "HTTP requests answered with a 4xx or 5xx status"},
	}
	for _, c := range counters {
		if *c.dst, err = telemetry.NewCounter(meter, c.name, c.desc, "{request}"); err != nil {
			return nil, err
		}
	}

	histograms := []struct {
		dst  **telemetry.Histogram
		opts telemetry.HistogramOpts
	}{
		{&ri.latency, telemetry.HistogramOpts{
			Name: "http_server_request_duration_seconds", Description: "HTTP request latency",
			Unit: "s", Boundaries: telemetry.HTTPDurationBuckets,
		}},
		{&ri.reqBody, telemetry.HistogramOpts{
			Name: "http_server_request_size_bytes", Description: "HTTP request body size",
			Unit: "By", Boundaries: bodySizeBuckets,
		}},
		{&ri.respBody, telemetry.HistogramOpts{
			Name: "http_server_response_size_bytes", Description: "HTTP response body size",
			Unit: "By", Boundaries: bodySizeBuckets,
		}},
	}
	for _, h := range histograms {
		if *h.dst, err = telemetry.NewHistogram(meter, h.opts); err != nil {
			return nil, err
		}
	}

	ri.inFlight, err = meter.Int64UpDownCounter(
		"http_server_active_requests",
		metric.WithDescription("HTTP requests currently being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return ri, nil
}

// HTTPMetrics counts and times every request by method, matched route and
// status. It is a pass-through when metrics are off.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.MeterProvider == nil || !cfg.MeterProvider.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(cfg.MeterProvider.Meter("http.server"), cfg.Logger)
}

// HTTPMetricsWithMeter builds the middleware on an existing meter.
func HTTPMetricsWithMeter(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	ri, err := newRequestInstruments(meter)
	if err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return passThrough
	}
	return ri.observe
}

func (ri *requestInstruments) observe(c *gin.Context) {
	ctx := c.Request.Context()
	started := time.Now()

	ri.inFlight.Add(ctx, 1)
	defer ri.inFlight.Add(ctx, -1)

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = unmatchedRoute
	}
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}
	status := c.Writer.Status()
	withStatus := append(attrs[:len(attrs):len(attrs)], telemetry.AttrHTTPStatusCode.Int(status))

	ri.total.Inc(ctx, withStatus...)
	if status >= 400 {
		ri.failed.Inc(ctx, withStatus...)
	}
	ri.latency.RecordDuration(ctx, time.Since(started), attrs...)
	if n := c.Request.ContentLength; n > 0 {
		ri.reqBody.Record(ctx, float64(n), attrs...)
	}
	if n := c.Writer.Size(); n > 0 {
		ri.respBody.Record(ctx, float64(n), attrs...)
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}
