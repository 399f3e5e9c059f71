package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/erp/invoicing/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig controls per-request profiling labels.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths are served without labels.
	SkipPaths []string
}

// DefaultProfilingConfig labels everything except the health check.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:   true,
		SkipPaths: []string{"/health"},
	}
}

// ProfilingWithConfig runs each routed request under Pyroscope labels
// (controller, route, method and the operation segment) so CPU samples can
// be split by endpoint.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	skip := make(map[string]bool, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		controller, operation := splitRoute(route)
		labels := telemetry.HTTPRequestLabels(controller, route, c.Request.Method)
		if operation != "" {
			labels[telemetry.ProfilingLabelOperation] = operation
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

var versionPrefix = regexp.MustCompile(`^/api/[vV]\d+`)

// splitRoute returns the first and last static segments of a route pattern
// once the /api/vN prefix is removed. "/api/v1/invoices/:id/card-payment"
// gives ("invoices", "card-payment"); a single-segment route has no operation.
func splitRoute(route string) (controller, operation string) {
	var static []string
	for _, seg := range strings.Split(versionPrefix.ReplaceAllString(route, ""), "/") {
		if seg != "" && !strings.HasPrefix(seg, ":") && !strings.HasPrefix(seg, "*") {
			static = append(static, seg)
		}
	}
	switch len(static) {
	case 0:
		return "", ""
	case 1:
		return static[0], ""
	default:
		return static[0], static[len(static)-1]
	}
}
