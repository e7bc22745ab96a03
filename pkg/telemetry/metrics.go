package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the gateway's named OpenTelemetry instruments. All
// fields are safe for concurrent use.
type Metrics struct {
	// ProviderConnects counts connect attempts per provider namespace
	// and outcome ("success" | "failure").
	ProviderConnects metric.Int64Counter

	// ProviderConnectDuration tracks how long a provider connect
	// attempt (handshake included) takes.
	ProviderConnectDuration metric.Float64Histogram

	// ToolRoutes counts routed tool calls and prompt gets by namespace
	// and outcome.
	ToolRoutes metric.Int64Counter

	// ToolRouteDuration tracks routed tool call and prompt get latency.
	ToolRouteDuration metric.Float64Histogram

	// CapabilityListDuration tracks ListTools/ListPrompts fan-out
	// latency across all connected providers.
	CapabilityListDuration metric.Float64Histogram

	// ActiveProviders tracks the number of currently connected
	// upstream providers.
	ActiveProviders metric.Int64UpDownCounter
}

var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised Metrics struct from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.ProviderConnects, err = m.Int64Counter("fedgate.provider.connects",
		metric.WithDescription("Total provider connect attempts by namespace and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ProviderConnectDuration, err = m.Float64Histogram("fedgate.provider.connect.duration",
		metric.WithDescription("Provider connect/handshake latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolRoutes, err = m.Int64Counter("fedgate.tool.routes",
		metric.WithDescription("Total routed tool calls by namespace and outcome."),
	); err != nil {
		return nil, err
	}
	if met.ToolRouteDuration, err = m.Float64Histogram("fedgate.tool.route.duration",
		metric.WithDescription("Routed tool call latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CapabilityListDuration, err = m.Float64Histogram("fedgate.capability.list.duration",
		metric.WithDescription("Latency of a ListTools/ListPrompts fan-out across connected providers."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveProviders, err = m.Int64UpDownCounter("fedgate.active_providers",
		metric.WithDescription("Number of currently connected upstream providers."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, creating it
// on first call from otel.GetMeterProvider. Tests should use NewMetrics
// with an explicit MeterProvider instead, to avoid cross-test pollution.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("telemetry: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordConnect records a provider connect attempt's outcome and
// duration in seconds.
func (m *Metrics) RecordConnect(ctx context.Context, namespace, outcome string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("outcome", outcome),
	)
	m.ProviderConnects.Add(ctx, 1, attrs)
	m.ProviderConnectDuration.Record(ctx, seconds, attrs)
}

// RecordRoute records a routed tool call's or prompt get's outcome and
// duration in seconds.
func (m *Metrics) RecordRoute(ctx context.Context, namespace, outcome string, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("outcome", outcome),
	)
	m.ToolRoutes.Add(ctx, 1, attrs)
	m.ToolRouteDuration.Record(ctx, seconds, attrs)
}

// RecordCapabilityList records a ListTools/ListPrompts fan-out latency.
func (m *Metrics) RecordCapabilityList(ctx context.Context, seconds float64) {
	m.CapabilityListDuration.Record(ctx, seconds)
}

// AdjustActiveProviders applies delta (positive on connect, negative on
// disconnect) to the active provider gauge.
func (m *Metrics) AdjustActiveProviders(ctx context.Context, delta int64) {
	m.ActiveProviders.Add(ctx, delta)
}
