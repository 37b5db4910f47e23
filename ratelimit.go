package memotl

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	RequestsPerMinute int // Sustained backend requests per minute (default: 60)
	BurstSize         int // Requests allowed back to back (default: RequestsPerMinute)
}

// RateLimiter is a token bucket shared by every caller of one backend.
// Local model servers generate one reply at a time, so sending more requests
// than they can answer only lengthens their queue.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   float64
	capacity float64
	perSec   float64
	updated  time.Time
}

// NewRateLimiter creates a limiter with a full bucket.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = rpm
	}

	return &RateLimiter{
		tokens:   float64(burst),
		capacity: float64(burst),
		perSec:   float64(rpm) / 60,
		updated:  time.Now(),
	}
}

// Wait takes one token, sleeping until the bucket has one or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := r.reserve()
		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// TryAcquire takes one token if one is available right now.
func (r *RateLimiter) TryAcquire() bool {
	return r.reserve() == 0
}

// Available returns the tokens currently in the bucket.
func (r *RateLimiter) Available() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advance(time.Now())
	return r.tokens
}

// reserve takes a token and returns 0, or returns how long until one exists.
func (r *RateLimiter) reserve() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advance(time.Now())
	if r.tokens >= 1 {
		r.tokens--
		return 0
	}

	missing := 1 - r.tokens
	wait := time.Duration(missing / r.perSec * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	return wait
}

func (r *RateLimiter) advance(now time.Time) {
	r.tokens += now.Sub(r.updated).Seconds() * r.perSec
	if r.tokens > r.capacity {
		r.tokens = r.capacity
	}
	r.updated = now
}

// RateLimitedBackend makes every request to backend take a token first.
type RateLimitedBackend struct {
	backend Backend
	limiter *RateLimiter
}

// NewRateLimitedBackend wraps backend with a fresh limiter.
func NewRateLimitedBackend(backend Backend, cfg RateLimitConfig) *RateLimitedBackend {
	return &RateLimitedBackend{
		backend: backend,
		limiter: NewRateLimiter(cfg),
	}
}

// Name returns the wrapped backend's name.
func (b *RateLimitedBackend) Name() string {
	return b.backend.Name()
}

// Translate waits for a token, then calls the wrapped backend.
func (b *RateLimitedBackend) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return "", &ProviderError{
			Message: "gave up waiting for rate limit",
			Cause:   err,
		}
	}
	return b.backend.Translate(ctx, req)
}

// Limiter returns the limiter used by b.
func (b *RateLimitedBackend) Limiter() *RateLimiter {
	return b.limiter
}
