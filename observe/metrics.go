package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records per-stage events from the admission/caching stack.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordAdmission records a bulkhead decision.
	RecordAdmission(ctx context.Context, tool string, rejected bool)

	// RecordCacheOutcome records a response-cache outcome
	// (hit, miss, or shared).
	RecordCacheOutcome(ctx context.Context, tool, outcome string)

	// RecordLimiterWait records how long a call waited for a rate-limit
	// token.
	RecordLimiterWait(ctx context.Context, tool string, wait time.Duration)

	// RecordDispatch records a completed dispatch with duration and
	// error status.
	RecordDispatch(ctx context.Context, tool string, duration time.Duration, err error)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	admitted     metric.Int64Counter
	rejected     metric.Int64Counter
	cacheOutcome metric.Int64Counter
	limiterWait  metric.Float64Histogram
	dispatchDur  metric.Float64Histogram
	dispatchErr  metric.Int64Counter
}

// NewMetrics creates a Metrics instance with the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	admitted, err := meter.Int64Counter(
		"tool.admission.admitted",
		metric.WithDescription("Tool calls admitted by the bulkhead"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter(
		"tool.admission.rejected",
		metric.WithDescription("Tool calls rejected at the bulkhead"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	cacheOutcome, err := meter.Int64Counter(
		"tool.cache.outcome",
		metric.WithDescription("Response cache outcomes (hit, miss, shared)"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	limiterWait, err := meter.Float64Histogram(
		"tool.limiter.wait_ms",
		metric.WithDescription("Time spent waiting for a rate-limit token"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchDur, err := meter.Float64Histogram(
		"tool.dispatch.duration_ms",
		metric.WithDescription("Tool dispatch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErr, err := meter.Int64Counter(
		"tool.dispatch.errors",
		metric.WithDescription("Tool dispatch failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		admitted:     admitted,
		rejected:     rejected,
		cacheOutcome: cacheOutcome,
		limiterWait:  limiterWait,
		dispatchDur:  dispatchDur,
		dispatchErr:  dispatchErr,
	}, nil
}

func toolAttr(tool string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("tool.name", tool))
}

func (m *metricsImpl) RecordAdmission(ctx context.Context, tool string, rejected bool) {
	if rejected {
		m.rejected.Add(ctx, 1, toolAttr(tool))
		return
	}
	m.admitted.Add(ctx, 1, toolAttr(tool))
}

func (m *metricsImpl) RecordCacheOutcome(ctx context.Context, tool, outcome string) {
	m.cacheOutcome.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool.name", tool),
		attribute.String("cache.outcome", outcome),
	))
}

func (m *metricsImpl) RecordLimiterWait(ctx context.Context, tool string, wait time.Duration) {
	m.limiterWait.Record(ctx, float64(wait.Milliseconds()), toolAttr(tool))
}

func (m *metricsImpl) RecordDispatch(ctx context.Context, tool string, duration time.Duration, err error) {
	m.dispatchDur.Record(ctx, float64(duration.Milliseconds()), toolAttr(tool))
	if err != nil {
		m.dispatchErr.Add(ctx, 1, toolAttr(tool))
	}
}

// noopMetrics records nothing.
type noopMetrics struct{}

func (noopMetrics) RecordAdmission(context.Context, string, bool)                {}
func (noopMetrics) RecordCacheOutcome(context.Context, string, string)           {}
func (noopMetrics) RecordLimiterWait(context.Context, string, time.Duration)     {}
func (noopMetrics) RecordDispatch(context.Context, string, time.Duration, error) {}

// NopMetrics returns a Metrics implementation that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

var _ Metrics = (*metricsImpl)(nil)
