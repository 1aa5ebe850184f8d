// Package telemetry wires OpenTelemetry tracing and metrics for the engine:
// check decisions, tuple writes, rule reloads, and cache effectiveness.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the telemetry configuration.
type Config struct {
	// ServiceName is the name of the service (e.g., "seal").
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Environment is the deployment environment (e.g., "production").
	Environment string

	// OTLPEndpoint is the OTLP exporter endpoint for traces.
	// Leave empty to disable trace export.
	OTLPEndpoint string

	// SamplingRate is the trace sampling rate (0.0-1.0).
	SamplingRate float64

	// Enabled determines if telemetry is active.
	Enabled bool
}

// DefaultConfig returns a default telemetry configuration.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "seal",
		ServiceVersion: "1.0.0",
		Environment:    "development",
		SamplingRate:   1.0,
		Enabled:        true,
	}
}

// Provider manages OpenTelemetry tracer and meter providers.
type Provider struct {
	config         Config
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter

	// Metrics
	checkCounter  metric.Int64Counter
	checkDuration metric.Float64Histogram
	tupleCounter  metric.Int64Counter
	reloadCounter metric.Int64Counter
	cacheCounter  metric.Int64Counter
	depthExceeded metric.Int64Counter
}

// NewProvider creates a new telemetry provider.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{config: cfg}, nil
	}

	p := &Provider{config: cfg}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	if err := p.setupTracing(res); err != nil {
		return nil, err
	}
	if err := p.setupMetrics(res); err != nil {
		return nil, err
	}
	if err := p.initMetrics(); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Provider) setupTracing(res *resource.Resource) error {
	var sampler sdktrace.Sampler
	if p.config.SamplingRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if p.config.SamplingRate <= 0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(p.config.SamplingRate)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(res),
	}

	// Add OTLP exporter if configured
	if p.config.OTLPEndpoint != "" {
		exporter, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(p.config.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return err
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	p.tracerProvider = sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(p.tracerProvider)

	p.tracer = p.tracerProvider.Tracer(p.config.ServiceName)

	return nil
}

func (p *Provider) setupMetrics(res *resource.Resource) error {
	exporter, err := prometheus.New()
	if err != nil {
		return err
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(p.meterProvider)

	p.meter = p.meterProvider.Meter(p.config.ServiceName)

	return nil
}

func (p *Provider) initMetrics() error {
	var err error

	p.checkCounter, err = p.meter.Int64Counter(
		"seal.check.total",
		metric.WithDescription("Total number of permission checks"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	p.checkDuration, err = p.meter.Float64Histogram(
		"seal.check.duration",
		metric.WithDescription("Permission check duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	p.tupleCounter, err = p.meter.Int64Counter(
		"seal.tuple.mutations.total",
		metric.WithDescription("Total number of tuple writes and deletes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	p.reloadCounter, err = p.meter.Int64Counter(
		"seal.rules.reloads.total",
		metric.WithDescription("Total number of rule version loads"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	p.cacheCounter, err = p.meter.Int64Counter(
		"seal.check.cache.total",
		metric.WithDescription("Check cache lookups by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	p.depthExceeded, err = p.meter.Int64Counter(
		"seal.check.depth_exceeded.total",
		metric.WithDescription("Checks denied by the recursion depth guard"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Shutdown gracefully shuts down the telemetry providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Tracer returns the tracer instance.
func (p *Provider) Tracer() trace.Tracer {
	if p.tracer == nil {
		return otel.Tracer(p.config.ServiceName)
	}
	return p.tracer
}

// Meter returns the meter instance.
func (p *Provider) Meter() metric.Meter {
	if p.meter == nil {
		return otel.Meter(p.config.ServiceName)
	}
	return p.meter
}

// ---- Metric Recording Methods ----

// RecordCheck records one permission check decision.
func (p *Provider) RecordCheck(ctx context.Context, namespace, permission, status string, duration time.Duration) {
	if p.checkCounter == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("permission", permission),
		attribute.String("status", status),
	)
	p.checkCounter.Add(ctx, 1, attrs)
	p.checkDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordDepthExceeded records a denial caused by the recursion guard.
func (p *Provider) RecordDepthExceeded(ctx context.Context, namespace, permission string) {
	if p.depthExceeded == nil {
		return
	}
	p.depthExceeded.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("namespace", namespace),
			attribute.String("permission", permission),
		),
	)
}

// RecordTupleMutation records tuple writes or deletes.
func (p *Provider) RecordTupleMutation(ctx context.Context, op string, count int) {
	if p.tupleCounter == nil {
		return
	}
	p.tupleCounter.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("op", op)),
	)
}

// RecordRuleReload records a rule version load or activation.
func (p *Provider) RecordRuleReload(ctx context.Context, version string, success bool) {
	if p.reloadCounter == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	p.reloadCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("version", version),
			attribute.String("status", status),
		),
	)
}

// RecordCacheLookup records a check cache hit or miss.
func (p *Provider) RecordCacheLookup(ctx context.Context, hit bool) {
	if p.cacheCounter == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	p.cacheCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
