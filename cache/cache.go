package cache

import (
	"errors"
	"fmt"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	// ErrInvalidKey is returned when an argument set cannot be
	// normalized into a cache key. The request fails before any cache,
	// limiter, or bulkhead state is touched.
	ErrInvalidKey = errors.New("cache: key is invalid")

	// ErrKeyTooLong is returned when a key exceeds MaxKeyLength. It
	// wraps ErrInvalidKey so callers can classify it the same way.
	ErrKeyTooLong = fmt.Errorf("%w: exceeds max length", ErrInvalidKey)
)

// Outcome describes how a GetOrCompute call was satisfied.
type Outcome int

const (
	// OutcomeMiss means the caller owned a fresh computation.
	OutcomeMiss Outcome = iota
	// OutcomeHit means a live entry was served with no computation.
	OutcomeHit
	// OutcomeShared means the caller attached to an in-flight
	// computation for the same key.
	OutcomeShared
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeShared:
		return "shared"
	default:
		return "miss"
	}
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// Reject keys with newlines or carriage returns
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
