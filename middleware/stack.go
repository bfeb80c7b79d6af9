package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/cratesmcp/cache"
	"github.com/jonwraymond/cratesmcp/observe"
	"github.com/jonwraymond/cratesmcp/resilience"
)

// Handler is the signature for tool dispatch functions. The stack wraps a
// Handler and is transport-agnostic: the MCP server adapts its own handler
// type to this one at the boundary.
type Handler func(ctx context.Context, name string, args any) ([]byte, error)

// StackConfig configures the admission stack. Nil components are replaced
// with instances built from their default configs; nil observability hooks
// become no-ops.
type StackConfig struct {
	Timeout  *resilience.Timeout
	Bulkhead *resilience.Bulkhead
	Cache    *cache.ResponseCache
	Limiter  *resilience.RateLimiter
	Keyer    cache.Keyer

	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

// Stack applies the admission stages to tool calls in a fixed order:
// Timeout -> Bulkhead -> Response Cache -> Rate Limiter -> dispatch.
//
// Contract:
//   - Concurrency: Wrap() returns a Handler safe for concurrent use.
//   - Context: the timeout guard derives the deadline; every inner stage
//     honors cancellation.
//   - Errors: stage errors surface as their package sentinels
//     (resilience.ErrBulkheadFull, resilience.ErrTimeout,
//     cache.ErrInvalidKey); dispatch errors propagate unchanged and are
//     never cached.
type Stack struct {
	timeout  *resilience.Timeout
	bulkhead *resilience.Bulkhead
	cache    *cache.ResponseCache
	limiter  *resilience.RateLimiter
	keyer    cache.Keyer

	logger  observe.Logger
	metrics observe.Metrics
	tracer  observe.Tracer
}

// NewStack creates a Stack from the given configuration.
func NewStack(config StackConfig) *Stack {
	// Apply defaults
	if config.Timeout == nil {
		config.Timeout = resilience.NewTimeout(resilience.TimeoutConfig{})
	}
	if config.Bulkhead == nil {
		config.Bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{})
	}
	if config.Cache == nil {
		config.Cache = cache.NewResponseCache(cache.ResponseCacheConfig{Enabled: true})
	}
	if config.Limiter == nil {
		config.Limiter = resilience.NewRateLimiter(resilience.RateLimiterConfig{})
	}
	if config.Keyer == nil {
		config.Keyer = cache.NewDefaultKeyer()
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NopTracer()
	}

	return &Stack{
		timeout:  config.Timeout,
		bulkhead: config.Bulkhead,
		cache:    config.Cache,
		limiter:  config.Limiter,
		keyer:    config.Keyer,
		logger:   config.Logger.WithComponent("stack"),
		metrics:  config.Metrics,
		tracer:   config.Tracer,
	}
}

// Wrap wraps a dispatch Handler with the full admission stack.
func (s *Stack) Wrap(next Handler) Handler {
	return func(ctx context.Context, name string, args any) ([]byte, error) {
		// Key derivation is pure and happens before any stage mutates
		// state: a bad argument set touches neither permits nor tokens.
		key, err := s.keyer.Key(name, args)
		if err != nil {
			s.logger.Warn(ctx, "cache key derivation failed",
				observe.Field{Key: "tool", Value: name},
				observe.Field{Key: "error", Value: err.Error()},
			)
			return nil, err
		}

		ctx, span := s.tracer.StartSpan(ctx, name)
		start := time.Now()

		var (
			value   []byte
			outcome cache.Outcome
		)
		err = s.timeout.Execute(ctx, func(ctx context.Context) error {
			if err := s.bulkhead.Acquire(ctx); err != nil {
				// Only a full bulkhead counts as a rejection; a canceled
				// or expired context is the caller's doing.
				if errors.Is(err, resilience.ErrBulkheadFull) {
					s.metrics.RecordAdmission(ctx, name, true)
				}
				return err
			}
			s.metrics.RecordAdmission(ctx, name, false)
			defer s.bulkhead.Release()

			v, oc, err := s.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
				waitStart := time.Now()
				if err := s.limiter.Acquire(ctx); err != nil {
					return nil, err
				}
				s.metrics.RecordLimiterWait(ctx, name, time.Since(waitStart))

				dispatchStart := time.Now()
				out, err := next(ctx, name, args)
				s.metrics.RecordDispatch(ctx, name, time.Since(dispatchStart), err)
				return out, err
			})
			outcome = oc
			s.metrics.RecordCacheOutcome(ctx, name, oc.String())
			if err != nil {
				return err
			}
			value = v
			return nil
		})

		s.tracer.EndSpan(span, err)
		s.logCompletion(ctx, name, outcome, time.Since(start), err)

		if err != nil {
			return nil, err
		}
		return value, nil
	}
}

func (s *Stack) logCompletion(ctx context.Context, name string, outcome cache.Outcome, duration time.Duration, err error) {
	fields := []observe.Field{
		{Key: "tool", Value: name},
		{Key: "outcome", Value: outcome.String()},
		{Key: "duration_ms", Value: float64(duration.Milliseconds())},
	}
	if err != nil {
		fields = append(fields, observe.Field{Key: "error", Value: err.Error()})
		s.logger.Error(ctx, "tool call failed", fields...)
		return
	}
	s.logger.Debug(ctx, "tool call completed", fields...)
}
