package resilience

import "errors"

// Sentinel errors for admission control.
var (
	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	// Admission is rejected immediately; the caller may retry later.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an invocation exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)
