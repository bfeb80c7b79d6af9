package crates

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested resource does not exist (404).
	ErrNotFound = errors.New("crates: not found")

	// ErrRateLimited indicates the registry rejected the request (429).
	ErrRateLimited = errors.New("crates: rate limited")

	// ErrPermissionDenied indicates the registry refused access (403).
	ErrPermissionDenied = errors.New("crates: permission denied")
)

// APIError is returned for non-success statuses that have no dedicated
// sentinel.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crates: API error (%d): %s", e.Status, e.Message)
}
