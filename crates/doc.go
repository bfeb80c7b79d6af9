// Package crates implements a read-only client for the crates.io
// registry API. Rate limiting is not handled here: callers go through
// the admission stack, which owns the token bucket for all upstream
// traffic.
package crates
