// Package telemetry wires the gateway's named OpenTelemetry instruments to
// a Prometheus-backed MeterProvider and exposes them on an HTTP /metrics
// endpoint. It carries no request-level state beyond the instruments
// themselves, which are safe for concurrent use.
package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// meterName is the instrumentation scope name used for all gateway metrics.
const meterName = "github.com/federatedmcp/gateway"

// Provider owns the process-wide MeterProvider and its Prometheus bridge.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
}

// Init builds a Prometheus-backed MeterProvider, registers it as the
// global provider, and returns it wrapped in a Provider whose Shutdown
// releases it. serviceName
// and serviceVersion are attached to every exported series as resource
// attributes.
func Init(serviceName, serviceVersion string) (*Provider, error) {
	if serviceName == "" {
		serviceName = "federated-mcp-gateway"
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	promExp, err := promexporter.New()
	if err != nil {
		return nil, err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExp),
	)
	otel.SetMeterProvider(mp)

	return &Provider{meterProvider: mp}, nil
}

// Shutdown flushes and releases the underlying MeterProvider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.meterProvider.Shutdown(ctx)
}

// Handler returns the HTTP handler serving the Prometheus exposition
// format. The otel Prometheus exporter registers on the default
// Prometheus registry, so this mirrors the exporter's own default.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Meter returns the meter every gateway instrument is created from.
func (p *Provider) Meter() metric.Meter {
	return p.meterProvider.Meter(meterName)
}

// MeterProvider returns the underlying MeterProvider, for callers (like
// NewMetrics) that need the provider itself rather than one of its
// meters.
func (p *Provider) MeterProvider() metric.MeterProvider {
	return p.meterProvider
}
