package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := LogsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ServiceName:       "invoicing-test",
		Insecure:          true,
	}

	lp, err := NewLoggerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.IsEnabled())
	assert.Equal(t, cfg, lp.GetConfig())
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestNewZapOTELCore_DisabledIsNop(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{}, zap.NewNop())
	require.NoError(t, err)

	core := NewZapOTELCore("invoicing-test", lp, zapcore.InfoLevel)
	assert.False(t, core.Enabled(zapcore.ErrorLevel))

	assert.False(t, NewZapOTELCore("invoicing-test", nil, zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

type discardExporter struct{}

func (discardExporter) Export(context.Context, []sdklog.Record) error { return nil }
func (discardExporter) Shutdown(context.Context) error                { return nil }
func (discardExporter) ForceFlush(context.Context) error              { return nil }

func TestNewZapOTELCore_FiltersBelowLevel(t *testing.T) {
	ctx := context.Background()
	sdk := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(discardExporter{})))
	t.Cleanup(func() { _ = sdk.Shutdown(ctx) })
	lp := &LoggerProvider{sdk: sdk, config: LogsConfig{Enabled: true}}

	core := NewZapOTELCore("invoicing-test", lp, zapcore.WarnLevel)
	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))
}

func TestBridgeLogger_TeesToOTELCore(t *testing.T) {
	ctx := context.Background()
	sdk := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(discardExporter{})))
	t.Cleanup(func() { _ = sdk.Shutdown(ctx) })
	lp := &LoggerProvider{sdk: sdk, config: LogsConfig{Enabled: true}}

	inner, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(inner)
	bridged := BridgeLogger(base, "invoicing-test", lp)
	require.NotSame(t, base, bridged)

	bridged.Info("Payment added", zap.Int64("payment_id", 1001))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, int64(1001), logs.All()[0].ContextMap()["payment_id"])
}

func TestBridgeLogger_DisabledReturnsBase(t *testing.T) {
	base := zap.NewNop()
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{}, base)
	require.NoError(t, err)

	assert.Same(t, base, BridgeLogger(base, "invoicing-test", lp))
	assert.Same(t, base, BridgeLogger(base, "invoicing-test", nil))
}
