package filter

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const filterInstrumentationName = "github.com/fyrsmithlabs/toolscope/internal/filter"

// serviceMetrics holds filter-pipeline metrics.
type serviceMetrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	requests       metric.Int64Counter
	duration       metric.Float64Histogram
	toolsEvaluated metric.Int64Histogram
	errors         metric.Int64Counter
}

func newServiceMetrics(logger *zap.Logger) *serviceMetrics {
	m := &serviceMetrics{
		meter:  otel.Meter(filterInstrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *serviceMetrics) init() {
	var err error

	m.requests, err = m.meter.Int64Counter(
		"toolscope.filter.requests_total",
		metric.WithDescription("Total filter requests by cache outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		m.logger.Warn("failed to create requests counter", zap.Error(err))
	}

	m.duration, err = m.meter.Float64Histogram(
		"toolscope.filter.request_duration_seconds",
		metric.WithDescription("End-to-end filter request duration; cache hits skip the embedding call and dominate the low buckets"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.toolsEvaluated, err = m.meter.Int64Histogram(
		"toolscope.filter.tools_evaluated",
		metric.WithDescription("Registry entries scored per request (registry size minus exclusions)"),
		metric.WithUnit("{tool}"),
		metric.WithExplicitBucketBoundaries(10, 25, 50, 100, 250, 500, 1000, 2500),
	)
	if err != nil {
		m.logger.Warn("failed to create tools evaluated histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"toolscope.filter.errors_total",
		metric.WithDescription("Filter request failures (uninitialized registry, provider errors, dimension mismatches)"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// recordFilter records the outcome of one filter request.
func (m *serviceMetrics) recordFilter(ctx context.Context, metrics Metrics, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("cache_hit", metrics.CacheHit),
	}

	if m.requests != nil {
		m.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if m.duration != nil {
		m.duration.Record(ctx, metrics.TotalTime.Seconds(), metric.WithAttributes(attrs...))
	}
	if metrics.ToolsEvaluated > 0 && m.toolsEvaluated != nil {
		m.toolsEvaluated.Record(ctx, int64(metrics.ToolsEvaluated))
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1)
	}
}
