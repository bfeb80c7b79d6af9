package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig configures the timeout guard.
type TimeoutConfig struct {
	// Timeout is the per-invocation wall-clock deadline.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout wraps operations with a deadline.
//
// The deadline is enforced through the context: every stage below the
// guard (bulkhead, cache single-flight, limiter, dispatch) observes ctx,
// so expiry unwinds the caller promptly. An upstream call that cannot be
// cancelled cheaply may keep running; the cache layer detaches from it
// and resolves its in-flight waiters with the timeout failure.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout guard.
func NewTimeout(config TimeoutConfig) *Timeout {
	// Apply defaults
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

// Execute runs op under the configured deadline. A pre-existing earlier
// deadline on ctx is honored. Deadline expiry surfaces as ErrTimeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	err := op(ctx)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return ErrTimeout
	}
	return err
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}
