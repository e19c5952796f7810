package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics and Prometheus integration
type MetricsProvider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	registry      *prometheus.Registry

	// Application metrics
	httpRequestsTotal       metric.Int64Counter
	httpRequestDuration     metric.Float64Histogram
	arbitrageExecutions     metric.Int64Counter
	arbitrageExecDuration   metric.Float64Histogram
	hedgeRecoveriesTotal    metric.Int64Counter
	tradingHaltsTotal       metric.Int64Counter
	opportunityQueueDepth   metric.Int64UpDownCounter
	pipelineDropsTotal      metric.Int64Counter
	errorRate               metric.Float64Gauge
	systemResourceUsage     metric.Float64Gauge
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
	Namespace      string
	Port           int
	Enabled        bool
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg MetricsConfig) (*MetricsProvider, error) {
	if !cfg.Enabled {
		return &MetricsProvider{}, nil
	}

	// Create Prometheus registry
	registry := prometheus.NewRegistry()

	// Create Prometheus exporter
	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registry),
		otelprom.WithNamespace(cfg.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	// Create resource
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	// Set global meter provider
	otel.SetMeterProvider(meterProvider)

	// Create meter
	meter := meterProvider.Meter(cfg.ServiceName)

	// Initialize metrics
	mp := &MetricsProvider{
		meterProvider: meterProvider,
		meter:         meter,
		registry:      registry,
	}

	if err := mp.initializeMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return mp, nil
}

// initializeMetrics creates all application metrics
func (mp *MetricsProvider) initializeMetrics() error {
	var err error

	// HTTP metrics
	mp.httpRequestsTotal, err = mp.meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	mp.httpRequestDuration, err = mp.meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return fmt.Errorf("failed to create http_request_duration histogram: %w", err)
	}

	// Arbitrage execution metrics
	mp.arbitrageExecutions, err = mp.meter.Int64Counter(
		"arbitrage_executions_total",
		metric.WithDescription("Total number of Atomic Execution Protocol runs, by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create arbitrage_executions_total counter: %w", err)
	}

	mp.arbitrageExecDuration, err = mp.meter.Float64Histogram(
		"arbitrage_execution_duration_seconds",
		metric.WithDescription("Atomic Execution Protocol run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2),
	)
	if err != nil {
		return fmt.Errorf("failed to create arbitrage_execution_duration histogram: %w", err)
	}

	// Hedge recovery metrics
	mp.hedgeRecoveriesTotal, err = mp.meter.Int64Counter(
		"hedge_recoveries_total",
		metric.WithDescription("Total number of hedge-recovery market orders placed after an asymmetric fill"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create hedge_recoveries_total counter: %w", err)
	}

	// Trading halt metrics
	mp.tradingHaltsTotal, err = mp.meter.Int64Counter(
		"trading_halts_total",
		metric.WithDescription("Total number of trading halts, operator-initiated or fatal"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create trading_halts_total counter: %w", err)
	}

	// Opportunity queue metrics
	mp.opportunityQueueDepth, err = mp.meter.Int64UpDownCounter(
		"opportunity_queue_depth",
		metric.WithDescription("Current depth of the opportunity queue"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create opportunity_queue_depth gauge: %w", err)
	}

	// Market pipeline metrics
	mp.pipelineDropsTotal, err = mp.meter.Int64Counter(
		"pipeline_drops_total",
		metric.WithDescription("Total number of market updates dropped because the pipeline was at capacity"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pipeline_drops_total counter: %w", err)
	}

	// Error rate gauge
	mp.errorRate, err = mp.meter.Float64Gauge(
		"error_rate",
		metric.WithDescription("Current error rate percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return fmt.Errorf("failed to create error_rate gauge: %w", err)
	}

	// System resource usage
	mp.systemResourceUsage, err = mp.meter.Float64Gauge(
		"system_resource_usage",
		metric.WithDescription("System resource usage percentage"),
		metric.WithUnit("%"),
	)
	if err != nil {
		return fmt.Errorf("failed to create system_resource_usage gauge: %w", err)
	}

	return nil
}

// HTTP Metrics Methods

// RecordHTTPRequest records an HTTP request metric
func (mp *MetricsProvider) RecordHTTPRequest(ctx context.Context, method, path, status string, duration time.Duration) {
	if mp.httpRequestsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.String("status", status),
	}

	mp.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// Arbitrage Execution Metrics Methods

// RecordArbitrageExecution records one Atomic Execution Protocol run.
func (mp *MetricsProvider) RecordArbitrageExecution(ctx context.Context, symbol, outcome string, duration time.Duration) {
	if mp.arbitrageExecutions == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("symbol", symbol),
		attribute.String("outcome", outcome),
	}

	mp.arbitrageExecutions.Add(ctx, 1, metric.WithAttributes(attrs...))
	mp.arbitrageExecDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordHedgeRecovery records one hedge-recovery market order.
func (mp *MetricsProvider) RecordHedgeRecovery(ctx context.Context, symbol, venue string) {
	if mp.hedgeRecoveriesTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("symbol", symbol),
		attribute.String("venue", venue),
	}

	mp.hedgeRecoveriesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTradingHalt records one trading halt, tagged with its cause.
func (mp *MetricsProvider) RecordTradingHalt(ctx context.Context, reason string) {
	if mp.tradingHaltsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("reason", reason),
	}

	mp.tradingHaltsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Opportunity Queue Metrics Methods

// SetOpportunityQueueDepth reports the queue's current depth as an
// up/down counter delta relative to its last reported value.
func (mp *MetricsProvider) SetOpportunityQueueDepth(ctx context.Context, delta int64) {
	if mp.opportunityQueueDepth == nil {
		return
	}
	mp.opportunityQueueDepth.Add(ctx, delta)
}

// Market Pipeline Metrics Methods

// RecordPipelineDrop records one market update dropped for pipeline backpressure.
func (mp *MetricsProvider) RecordPipelineDrop(ctx context.Context) {
	if mp.pipelineDropsTotal == nil {
		return
	}
	mp.pipelineDropsTotal.Add(ctx, 1)
}

// System Metrics Methods

// UpdateErrorRate updates the current error rate
func (mp *MetricsProvider) UpdateErrorRate(ctx context.Context, rate float64) {
	if mp.errorRate == nil {
		return
	}
	mp.errorRate.Record(ctx, rate)
}

// UpdateSystemResourceUsage updates system resource usage
func (mp *MetricsProvider) UpdateSystemResourceUsage(ctx context.Context, resourceType string, usage float64) {
	if mp.systemResourceUsage == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("resource", resourceType),
	}

	mp.systemResourceUsage.Record(ctx, usage, metric.WithAttributes(attrs...))
}

// StartMetricsServer starts the Prometheus metrics HTTP server
func (mp *MetricsProvider) StartMetricsServer(port int) error {
	if mp.registry == nil {
		return fmt.Errorf("metrics not enabled")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(mp.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp.meterProvider == nil {
		return nil
	}
	return mp.meterProvider.Shutdown(ctx)
}
