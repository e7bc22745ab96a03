package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/federatedmcp/gateway/pkg/telemetry"
)

func TestNewMetricsRegistersAllInstruments(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	m, err := telemetry.NewMetrics(mp)
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	defer mp.Shutdown(context.Background())

	m, err := telemetry.NewMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordConnect(ctx, "echo", "success", 0.012)
	m.RecordRoute(ctx, "echo", "success", 0.004)
	m.RecordCapabilityList(ctx, 0.002)
	m.AdjustActiveProviders(ctx, 1)
	m.AdjustActiveProviders(ctx, -1)
}

func TestHandlerReturnsNonNil(t *testing.T) {
	h := telemetry.Handler()
	require.NotNil(t, h)
}
