package observability

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"bookie/settlement-engine/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the settlement engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	mu            sync.RWMutex

	// Metric instruments
	settlementsCounter          metric.Int64Counter
	wagersPendingGauge          metric.Int64UpDownCounter
	cashoutOffersCounter        metric.Int64Counter
	cashoutAcceptsCounter       metric.Int64Counter
	ledgerAppendsCounter        metric.Int64Counter
	notarizationFailuresCounter metric.Int64Counter
	natsPublishedCounter        metric.Int64Counter
	databaseQueriesCounter      metric.Int64Counter
	databaseQueryDurationHist   metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Println("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Println("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Println("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.Printf("Using OTLP metric exporter: %s", mp.config.OTelOTLPEndpoint)

	case "none":
		log.Println("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)

	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("settlement-engine")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	log.Println("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.settlementsCounter, err = mp.meter.Int64Counter(
		SettlementsTotal,
		metric.WithDescription("Total number of wager settlements by result"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlements counter: %w", err)
	}

	mp.wagersPendingGauge, err = mp.meter.Int64UpDownCounter(
		WagersPending,
		metric.WithDescription("Current number of pending wagers"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create pending wagers gauge: %w", err)
	}

	mp.cashoutOffersCounter, err = mp.meter.Int64Counter(
		CashoutOffersTotal,
		metric.WithDescription("Total number of cashout offers made"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cashout offers counter: %w", err)
	}

	mp.cashoutAcceptsCounter, err = mp.meter.Int64Counter(
		CashoutAcceptsTotal,
		metric.WithDescription("Total number of accepted cashouts"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create cashout accepts counter: %w", err)
	}

	mp.ledgerAppendsCounter, err = mp.meter.Int64Counter(
		LedgerAppendsTotal,
		metric.WithDescription("Total number of ledger entries appended"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger appends counter: %w", err)
	}

	mp.notarizationFailuresCounter, err = mp.meter.Int64Counter(
		NotarizationFailuresTotal,
		metric.WithDescription("Total number of permanently failed notarizations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create notarization failures counter: %w", err)
	}

	mp.natsPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	mp.databaseQueriesCounter, err = mp.meter.Int64Counter(
		DatabaseQueriesTotal,
		metric.WithDescription("Total number of database queries"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create database queries counter: %w", err)
	}

	mp.databaseQueryDurationHist, err = mp.meter.Float64Histogram(
		DatabaseQueryDuration,
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create database query duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordSettlement records a settled wager with its result
func (mp *MetricsProvider) RecordSettlement(result string) {
	if !mp.isEnabled() {
		return
	}

	mp.settlementsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelResult, result),
		),
	)
}

// UpdatePendingWagers adjusts the pending wager gauge
func (mp *MetricsProvider) UpdatePendingWagers(delta int64) {
	if !mp.isEnabled() {
		return
	}

	mp.wagersPendingGauge.Add(context.Background(), delta)
}

// RecordCashoutOffer records a cashout offer being made
func (mp *MetricsProvider) RecordCashoutOffer() {
	if !mp.isEnabled() {
		return
	}

	mp.cashoutOffersCounter.Add(context.Background(), 1)
}

// RecordCashoutAccept records an accepted cashout
func (mp *MetricsProvider) RecordCashoutAccept() {
	if !mp.isEnabled() {
		return
	}

	mp.cashoutAcceptsCounter.Add(context.Background(), 1)
}

// RecordLedgerAppend records a ledger entry being appended
func (mp *MetricsProvider) RecordLedgerAppend(transactionType string) {
	if !mp.isEnabled() {
		return
	}

	mp.ledgerAppendsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, transactionType),
		),
	)
}

// RecordNotarizationFailure records a permanently failed notarization
func (mp *MetricsProvider) RecordNotarizationFailure() {
	if !mp.isEnabled() {
		return
	}

	mp.notarizationFailuresCounter.Add(context.Background(), 1)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordDatabaseQuery records a database query with duration
func (mp *MetricsProvider) RecordDatabaseQuery(repository, method string, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelRepository, repository),
		attribute.String(LabelMethod, method),
	)

	mp.databaseQueriesCounter.Add(context.Background(), 1, attrs)
	mp.databaseQueryDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// MeasureDatabaseQuery returns a function to measure database query duration
// Usage:
//
//	defer mp.MeasureDatabaseQuery("ledger", "Append")()
func (mp *MetricsProvider) MeasureDatabaseQuery(repository, method string) func() {
	start := time.Now()
	return func() {
		mp.RecordDatabaseQuery(repository, method, time.Since(start))
	}
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.config.OTelEnabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
