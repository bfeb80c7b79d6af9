package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	metricnoop "go.opentelemetry.io/otel/metric/noop"
)

// TestNewMetrics_CreatesInstruments verifies instrument creation succeeds.
func TestNewMetrics_CreatesInstruments(t *testing.T) {
	meter := metricnoop.NewMeterProvider().Meter("test")

	m, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
}

// TestMetrics_RecordDoesNotPanic verifies all record paths are safe.
func TestMetrics_RecordDoesNotPanic(t *testing.T) {
	meter := metricnoop.NewMeterProvider().Meter("test")
	m, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	ctx := context.Background()
	m.RecordAdmission(ctx, "get_crate_info", false)
	m.RecordAdmission(ctx, "get_crate_info", true)
	m.RecordCacheOutcome(ctx, "get_crate_info", "hit")
	m.RecordCacheOutcome(ctx, "get_crate_info", "shared")
	m.RecordLimiterWait(ctx, "get_crate_info", 50*time.Millisecond)
	m.RecordDispatch(ctx, "get_crate_info", 120*time.Millisecond, nil)
	m.RecordDispatch(ctx, "get_crate_info", 5*time.Millisecond, errors.New("upstream failed"))
}

// TestNopMetrics verifies the no-op implementation is safe to use.
func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	ctx := context.Background()
	m.RecordAdmission(ctx, "x", true)
	m.RecordCacheOutcome(ctx, "x", "miss")
	m.RecordLimiterWait(ctx, "x", time.Second)
	m.RecordDispatch(ctx, "x", time.Second, nil)
}
