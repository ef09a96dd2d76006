package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/lifescribe/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter initializes the global meter provider. The caller shuts it down
// on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		logger.FieldService, config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricChunks          = "lifescribe.chunks"
	MetricSegments        = "lifescribe.segments"
	MetricUnknownSegments = "lifescribe.unknown_segments"
	MetricRunDuration     = "lifescribe.run.duration"
	MetricRequests        = "lifescribe.http.requests"
	MetricErrors          = "lifescribe.errors"
)

// Metrics holds the instruments lifescribe records.
type Metrics struct {
	chunks          metric.Int64Counter
	segments        metric.Int64Counter
	unknownSegments metric.Int64Counter
	runDuration     metric.Float64Histogram
	requests        metric.Int64Counter
	errors          metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	chunks, err := meter.Int64Counter(MetricChunks,
		metric.WithDescription("ASR chunks consumed by alignment"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricChunks, err)
	}

	segments, err := meter.Int64Counter(MetricSegments,
		metric.WithDescription("Speaker segments produced by alignment"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricSegments, err)
	}

	unknown, err := meter.Int64Counter(MetricUnknownSegments,
		metric.WithDescription("Segments no diarization interval overlapped"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricUnknownSegments, err)
	}

	runDuration, err := meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Duration of pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricRunDuration, err)
	}

	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("API requests by route and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricRequests, err)
	}

	errs, err := meter.Int64Counter(MetricErrors,
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricErrors, err)
	}

	return &Metrics{
		chunks:          chunks,
		segments:        segments,
		unknownSegments: unknown,
		runDuration:     runDuration,
		requests:        requests,
		errors:          errs,
	}, nil
}

// NewDefaultMetrics creates the instruments on the global meter provider.
func NewDefaultMetrics() (*Metrics, error) {
	return NewMetrics(Meter(defaultTracerName))
}

// RecordAlignment records the counters of one alignment run. A nil
// receiver records nothing.
func (m *Metrics) RecordAlignment(ctx context.Context, chunks, segments, unknownSegments int) {
	if m == nil {
		return
	}
	m.chunks.Add(ctx, int64(chunks))
	m.segments.Add(ctx, int64(segments))
	m.unknownSegments.Add(ctx, int64(unknownSegments))
}

// RecordRun records the duration and outcome of a pipeline run.
func (m *Metrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("status", status),
	))
}

// RecordRequest records an API request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int) {
	if m == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
