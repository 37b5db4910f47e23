package memotl

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRateLimiter_Burst(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 3})

	for i := 0; i < 3; i++ {
		if !limiter.TryAcquire() {
			t.Fatalf("token %d should be available", i)
		}
	}
	if limiter.TryAcquire() {
		t.Error("bucket should be empty after the burst")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{})
	if got := limiter.Available(); got != 60 {
		t.Errorf("expected a full bucket of 60, got %f", got)
	}
}

func TestRateLimiter_Refills(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 600, BurstSize: 1})
	limiter.TryAcquire()

	if limiter.TryAcquire() {
		t.Fatal("bucket should be empty")
	}
	time.Sleep(150 * time.Millisecond)
	if !limiter.TryAcquire() {
		t.Error("one token should have been refilled after 100ms")
	}
}

func TestRateLimiter_WaitBlocksUntilToken(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 600, BurstSize: 1})
	limiter.TryAcquire()

	start := time.Now()
	if err := limiter.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Wait returned after %v, expected about 100ms", elapsed)
	}
}

func TestRateLimiter_WaitHonoursContext(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})
	limiter.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRateLimiter_Available(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 60, BurstSize: 5})
	limiter.TryAcquire()
	limiter.TryAcquire()

	if got := limiter.Available(); got < 2.9 || got > 3.1 {
		t.Errorf("expected about 3 tokens, got %f", got)
	}
}

func TestRateLimiter_ConcurrentCallers(t *testing.T) {
	limiter := NewRateLimiter(RateLimitConfig{RequestsPerMinute: 6000, BurstSize: 10})

	var acquired atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.TryAcquire() {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()

	// Refill during the test may add a token at most
	if got := acquired.Load(); got < 10 || got > 11 {
		t.Errorf("expected the burst of 10 to be shared, got %d", got)
	}
}

func TestRateLimitedBackend(t *testing.T) {
	inner := &countingBackend{}
	backend := NewRateLimitedBackend(inner, RateLimitConfig{RequestsPerMinute: 600, BurstSize: 2})
	ctx := context.Background()

	for _, text := range []string{"オーブ", "モード"} {
		if _, err := backend.Translate(ctx, TranslateRequest{Text: text}); err != nil {
			t.Fatalf("translate %s: %v", text, err)
		}
	}

	start := time.Now()
	if _, err := backend.Translate(ctx, TranslateRequest{Text: "スペル"}); err != nil {
		t.Fatalf("translate スペル: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("third call should wait for a token, returned in %v", elapsed)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 inner calls, got %d", inner.calls)
	}
	if backend.Name() != "counting" {
		t.Errorf("expected wrapped name, got %s", backend.Name())
	}
}

func TestRateLimitedBackend_ContextCancelled(t *testing.T) {
	inner := &countingBackend{}
	backend := NewRateLimitedBackend(inner, RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})
	backend.Translate(context.Background(), TranslateRequest{Text: "オーブ"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := backend.Translate(ctx, TranslateRequest{Text: "モード"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected wrapped deadline error, got %v", err)
	}
	var provErr *ProviderError
	if !errors.As(err, &provErr) || provErr.Retryable {
		t.Errorf("expected non-retryable ProviderError, got %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("a cancelled wait must not reach the backend, got %d calls", inner.calls)
	}
}

// countingBackend echoes its input and counts calls.
type countingBackend struct {
	calls int
}

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	b.calls++
	return req.Text, nil
}
