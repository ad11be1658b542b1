package monitoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/alchemorsel/ingrediate/internal/infrastructure/config"
)

// TracingConfig holds tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Exporter       string
	OTLPEndpoint   string
	JaegerEndpoint string
	SamplingRate   float64
	Enabled        bool
}

// TracingConfigFrom builds a TracingConfig from the application configuration
func TracingConfigFrom(cfg *config.Config) TracingConfig {
	return TracingConfig{
		ServiceName:    cfg.App.Name,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		Exporter:       cfg.Monitoring.TraceExporter,
		OTLPEndpoint:   cfg.Monitoring.OTLPEndpoint,
		JaegerEndpoint: cfg.Monitoring.JaegerEndpoint,
		SamplingRate:   cfg.Monitoring.SamplingRate,
		Enabled:        cfg.Monitoring.EnableTracing,
	}
}

// TracingProvider wraps the OpenTelemetry trace and meter providers.
// Spans go to the configured exporter; OpenTelemetry instruments are
// bridged into the Prometheus registry passed at construction.
type TracingProvider struct {
	tracer        trace.Tracer
	provider      *sdktrace.TracerProvider
	meterProvider *sdkmetric.MeterProvider
	logger        *zap.Logger
	config        TracingConfig
}

// NewTracingProvider creates a new tracing provider and installs it globally.
// A nil registerer leaves the global meter provider untouched.
func NewTracingProvider(cfg TracingConfig, reg prometheus.Registerer, logger *zap.Logger) (*TracingProvider, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &TracingProvider{
		logger: logger,
		config: cfg,
	}

	if reg != nil {
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		t.meterProvider = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(t.meterProvider)
	}

	if !cfg.Enabled {
		logger.Info("Tracing is disabled")
		t.tracer = otel.Tracer(cfg.ServiceName)
		return t, nil
	}

	exporter, err := newSpanExporter(cfg)
	if err != nil {
		return nil, err
	}

	t.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	)
	otel.SetTracerProvider(t.provider)

	t.tracer = t.provider.Tracer(cfg.ServiceName,
		trace.WithInstrumentationVersion(cfg.ServiceVersion),
		trace.WithSchemaURL(semconv.SchemaURL),
	)

	logger.Info("Tracing initialized",
		zap.String("service", cfg.ServiceName),
		zap.String("version", cfg.ServiceVersion),
		zap.String("environment", cfg.Environment),
		zap.String("exporter", cfg.Exporter),
		zap.Float64("sampling_rate", cfg.SamplingRate),
	)

	return t, nil
}

func newSpanExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case config.TraceExporterJaeger:
		exporter, err := jaeger.New(
			jaeger.WithCollectorEndpoint(
				jaeger.WithEndpoint(cfg.JaegerEndpoint),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
		}
		return exporter, nil
	case config.TraceExporterOTLPGRPC:
		exporter, err := otlptracegrpc.New(
			context.Background(),
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
			otlptracegrpc.WithDialOption(grpc.WithUserAgent(cfg.ServiceName+"/"+cfg.ServiceVersion)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
		}
		return exporter, nil
	default:
		exporter, err := otlptracehttp.New(
			context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		return exporter, nil
	}
}

// Tracer returns the tracer spans should be started from
func (t *TracingProvider) Tracer() trace.Tracer {
	return t.tracer
}

// Enabled reports whether spans are exported
func (t *TracingProvider) Enabled() bool {
	return t.provider != nil
}

// Shutdown flushes pending spans and stops both providers
func (t *TracingProvider) Shutdown(ctx context.Context) error {
	var errs []error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	t.logger.Info("Telemetry shut down")
	return nil
}
