// Package telemetry wires OpenTelemetry traces, metrics and logs plus
// Pyroscope profiling into the invoicing service.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// ServiceVersion is stamped on every exported resource. main overrides it
// with the build version.
var ServiceVersion = "dev"

// shutdownTimeout caps the final flush of each provider.
const shutdownTimeout = 10 * time.Second

// newServiceResource identifies this process to the collector: service name
// and version plus host and runtime attributes.
func newServiceResource(serviceName string) (*resource.Resource, error) {
	detected, err := resource.New(context.Background(),
		resource.WithHost(),
		resource.WithProcessRuntimeName(),
		resource.WithProcessRuntimeVersion(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}
	return resource.Merge(resource.Default(), detected)
}
