package memotl

import (
	"errors"
	"fmt"
)

var (
	// ErrPassthrough is returned by the passthrough backend for every request.
	ErrPassthrough = errors.New("no translation backend configured")

	// ErrNotImplemented is returned by backends that exist only as placeholders.
	ErrNotImplemented = errors.New("backend not implemented")

	// ErrWaitTimeout is reported when a caller gave up waiting for another
	// caller's in-flight translation of the same text.
	ErrWaitTimeout = errors.New("timed out waiting for in-flight translation")
)

// ProviderError indicates a backend failure (network error, bad status, malformed payload).
type ProviderError struct {
	Message    string
	Cause      error
	StatusCode int  // HTTP status, 0 if no response was received
	Retryable  bool // Whether the operation can be retried
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("provider error: %s", e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// CacheError indicates a cache persistence failure.
type CacheError struct {
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("cache error: %s", e.Message)
}

func (e *CacheError) Unwrap() error {
	return e.Cause
}
