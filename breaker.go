package memotl

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker around a backend.
type BreakerConfig struct {
	Failures         uint32        // Consecutive failures that open the circuit (default: 5)
	Cooldown         time.Duration // How long the circuit stays open (default: 30s)
	HalfOpenRequests uint32        // Probe requests allowed while half-open (default: 1)
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Failures:         5,
		Cooldown:         30 * time.Second,
		HalfOpenRequests: 1,
	}
}

// BreakerBackend stops calling a backend that keeps failing. While the
// circuit is open every call fails immediately, so a stopped local server
// costs nothing per text instead of one connection timeout each.
type BreakerBackend struct {
	backend Backend
	cb      *gobreaker.CircuitBreaker
}

// NewBreakerBackend wraps backend with a circuit breaker.
func NewBreakerBackend(backend Backend, cfg BreakerConfig) *BreakerBackend {
	defaults := DefaultBreakerConfig()
	if cfg.Failures == 0 {
		cfg.Failures = defaults.Failures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaults.Cooldown
	}
	if cfg.HalfOpenRequests == 0 {
		cfg.HalfOpenRequests = defaults.HalfOpenRequests
	}

	failures := cfg.Failures
	return &BreakerBackend{
		backend: backend,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        backend.Name(),
			MaxRequests: cfg.HalfOpenRequests,
			Timeout:     cfg.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				// A caller giving up says nothing about the backend's health.
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

// Name returns the wrapped backend's name.
func (b *BreakerBackend) Name() string {
	return b.backend.Name()
}

// Translate implements Backend through the circuit breaker.
func (b *BreakerBackend) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.backend.Translate(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", &ProviderError{
			Message:   "circuit open for " + b.backend.Name(),
			Cause:     err,
			Retryable: false,
		}
	}
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State returns the breaker state: "closed", "half-open" or "open".
func (b *BreakerBackend) State() string {
	return b.cb.State().String()
}
