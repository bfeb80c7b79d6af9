// Package cache provides the bounded, time-expiring response cache that
// short-circuits repeated tool invocations, with single-flight
// deduplication of concurrent identical requests and deterministic
// SHA-256 key derivation.
package cache
