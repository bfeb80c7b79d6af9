// Package resilience provides the admission-control primitives that guard
// tool invocations: a bulkhead that caps concurrency, a token-bucket rate
// limiter that throttles upstream calls, and a timeout guard.
package resilience
