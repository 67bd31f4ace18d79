package cache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type outcome string

const (
	outcomeHit         outcome = "hit"
	outcomeGenerated   outcome = "generated"
	outcomeHandoff     outcome = "handoff"
	outcomeLateHit     outcome = "late_hit"
	outcomeUnavailable outcome = "unavailable"
)

type coordinatorMetricsCollection struct {
	requestCount       metric.Int64Counter
	generationCount    metric.Int64Counter
	generationDuration metric.Float64Histogram
	waitDuration       metric.Float64Histogram
}

func setupCoordinatorMetrics(meter metric.Meter) (coordinatorMetricsCollection, error) {
	requestCount, err := meter.Int64Counter(
		"cache/request_count",
		metric.WithDescription("Content requests by outcome"),
	)
	if err != nil {
		return coordinatorMetricsCollection{}, fmt.Errorf("failed to create request count metric: %w", err)
	}

	generationCount, err := meter.Int64Counter(
		"cache/generation_count",
		metric.WithDescription("Content generations by trigger and result"),
	)
	if err != nil {
		return coordinatorMetricsCollection{}, fmt.Errorf("failed to create generation count metric: %w", err)
	}

	generationDuration, err := meter.Float64Histogram(
		"cache/generation_duration_seconds",
		metric.WithDescription("Time spent generating content"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return coordinatorMetricsCollection{}, fmt.Errorf("failed to create generation duration metric: %w", err)
	}

	waitDuration, err := meter.Float64Histogram(
		"cache/wait_duration_seconds",
		metric.WithDescription("Time waiters spent blocked on the hand-off list"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return coordinatorMetricsCollection{}, fmt.Errorf("failed to create wait duration metric: %w", err)
	}

	return coordinatorMetricsCollection{
		requestCount:       requestCount,
		generationCount:    generationCount,
		generationDuration: generationDuration,
		waitDuration:       waitDuration,
	}, nil
}

func (m coordinatorMetricsCollection) recordOutcome(ctx context.Context, o outcome) {
	m.requestCount.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(o))))
}
