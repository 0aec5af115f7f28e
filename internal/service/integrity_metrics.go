package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type integrityMetrics struct {
	hashesGenerated metric.Int64Counter
	hashDuration    metric.Float64Histogram
	validations     metric.Int64Counter
	violations      metric.Int64Counter
}

func newIntegrityMetrics(provider metric.MeterProvider) (integrityMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}

	meter := provider.Meter("budget-integrity-ledger.integrity")

	var (
		metrics integrityMetrics
		err     error
	)

	metrics.hashesGenerated, err = meter.Int64Counter(
		"integrity.hashes.generated",
		metric.WithDescription("Number of approval and execution digests computed"),
		metric.WithUnit("{hash}"),
	)
	if err != nil {
		return integrityMetrics{}, fmt.Errorf("create integrity.hashes.generated counter: %w", err)
	}

	metrics.hashDuration, err = meter.Float64Histogram(
		"integrity.hash.duration",
		metric.WithDescription("Time taken to compute one budget digest"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return integrityMetrics{}, fmt.Errorf("create integrity.hash.duration histogram: %w", err)
	}

	metrics.validations, err = meter.Int64Counter(
		"integrity.validations",
		metric.WithDescription("Number of seal validations by outcome"),
		metric.WithUnit("{validation}"),
	)
	if err != nil {
		return integrityMetrics{}, fmt.Errorf("create integrity.validations counter: %w", err)
	}

	metrics.violations, err = meter.Int64Counter(
		"integrity.violations",
		metric.WithDescription("Number of failed seal validations by reason"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return integrityMetrics{}, fmt.Errorf("create integrity.violations counter: %w", err)
	}

	return metrics, nil
}

func (m integrityMetrics) recordHash(kind, algorithm string, started time.Time) {
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("algorithm", algorithm))
	m.hashesGenerated.Add(context.Background(), 1, attrs)
	m.hashDuration.Record(context.Background(), time.Since(started).Seconds(), attrs)
}

func (m integrityMetrics) recordValidation(passed bool, reason string) {
	outcome := "passed"
	if !passed {
		outcome = "failed"
	}
	m.validations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	if !passed {
		m.violations.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}
