// Package telemetry wires OpenTelemetry tracing and metrics.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/0xcro3dile/faqbot-go/internal/domain/entities"
)

const meterName = "github.com/0xcro3dile/faqbot-go"

// Config selects the OTLP endpoint, given as host:port or a full URL. An
// empty Endpoint uses the exporter defaults and the OTEL_EXPORTER_OTLP_*
// environment variables.
type Config struct {
	ServiceName string
	Version     string
	Endpoint    string
	Insecure    bool
}

// Setup installs global trace and meter providers exporting over OTLP/HTTP.
// The returned function flushes and stops both.
func Setup(ctx context.Context, cfg Config) (func(context.Context) error, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var traceOpts []otlptracehttp.Option
	var metricOpts []otlpmetrichttp.Option
	switch {
	case strings.Contains(cfg.Endpoint, "://"):
		traceOpts = append(traceOpts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		metricOpts = append(metricOpts, otlpmetrichttp.WithEndpointURL(cfg.Endpoint))
	case cfg.Endpoint != "":
		traceOpts = append(traceOpts, otlptracehttp.WithEndpoint(cfg.Endpoint))
		metricOpts = append(metricOpts, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
	}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	traceExporter, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	metricExporter, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("creating metric exporter: %w", err), traceExporter.Shutdown(ctx))
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		return errors.Join(tracerProvider.Shutdown(ctx), meterProvider.Shutdown(ctx))
	}, nil
}

// Metrics records application-level instruments.
type Metrics struct {
	replies metric.Int64Counter
}

// NewMetrics creates the instruments on mp, or on the global provider when
// mp is nil. The global provider is a no-op until Setup runs.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	replies, err := mp.Meter(meterName).Int64Counter(
		"faqbot.replies",
		metric.WithDescription("Replies sent to users, by kind"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{replies: replies}, nil
}

// RecordReply counts one reply of the given kind.
func (m *Metrics) RecordReply(ctx context.Context, kind entities.ReplyKind) {
	if m == nil {
		return
	}
	m.replies.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}
