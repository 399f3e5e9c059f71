// Package middleware provides HTTP middleware for the invoicing API.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength is the maximum accepted length of a client request ID
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	// ServiceName is the name of the service for trace identification.
	ServiceName string
	// Enabled controls whether tracing is active.
	Enabled bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "invoicing",
		Enabled:     true,
	}
}

// TracingWithConfig returns the otelgin server-span middleware using the
// global tracer provider. Spans are named after the matched route pattern.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector enriches the current span with request identifiers.
// Place it after TracingWithConfig and RequestID.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}

// enrichSpanWithAttributes adds request-scoped attributes to span
func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := GetRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if id, ok := int64Param(c, "id"); ok {
		span.SetAttributes(attribute.Int64("invoice_id", id))
	}
	if id, ok := int64Param(c, "paymentId"); ok {
		span.SetAttributes(attribute.Int64("payment_id", id))
	}
}

func int64Param(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	return v, err == nil
}

// SpanErrorMarker marks the span as failed for 4xx/5xx responses. The span
// status carries the response's ERR_* code when a handler recorded one.
// Place it after TracingWithConfig.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		description := http.StatusText(status)
		attrs := []attribute.KeyValue{attribute.Int("http.status_code", status)}
		if code := c.GetString(ErrorCodeKey); code != "" {
			description = code
			attrs = append(attrs, attribute.String("error.code", code))
		}
		if last := c.Errors.Last(); last != nil {
			span.RecordError(last.Err)
		}
		span.SetStatus(codes.Error, description)
		span.SetAttributes(attrs...)
	}
}
