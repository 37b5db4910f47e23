package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZaguanLabs/memotl"
)

func TestNew_SelectsBackend(t *testing.T) {
	tests := []struct {
		service memotl.Service
		want    string
	}{
		{memotl.ServiceOllama, "ollama"},
		{memotl.ServiceLMStudio, "lmstudio"},
		{memotl.ServiceRemote, "remote"},
		{memotl.ServicePassthrough, "passthrough"},
		{memotl.ParseService("deepl"), "passthrough"},
	}

	for _, tt := range tests {
		b := New(memotl.BackendConfig{Service: tt.service})
		if b.Name() != tt.want {
			t.Errorf("New(%v).Name() = %s, want %s", tt.service, b.Name(), tt.want)
		}
	}
}

func TestNew_Wrappers(t *testing.T) {
	b := New(memotl.BackendConfig{
		Service:   memotl.ServiceOllama,
		Retry:     &memotl.RetryConfig{MaxRetries: 1},
		RateLimit: &memotl.RateLimitConfig{RequestsPerMinute: 60},
		Breaker:   &memotl.BreakerConfig{},
	})

	breaker, ok := b.(*memotl.BreakerBackend)
	if !ok {
		t.Fatalf("expected breaker outermost, got %T", b)
	}
	if breaker.State() != "closed" {
		t.Errorf("expected closed breaker, got %s", breaker.State())
	}
	if b.Name() != "ollama" {
		t.Errorf("wrappers should keep the backend name, got %s", b.Name())
	}
}

func TestNew_RetriesTakeRateLimitTokens(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	b := New(memotl.BackendConfig{
		Service:   memotl.ServiceOllama,
		OllamaURL: server.URL,
		Retry:     &memotl.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		RateLimit: &memotl.RateLimitConfig{RequestsPerMinute: 60, BurstSize: 2},
	})

	// Two tokens cover two attempts; the third waits about a second for a refill.
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if _, err := b.Translate(ctx, TranslateRequest{Text: "オーブ"}); err == nil {
		t.Fatal("expected error from failing server")
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 requests within the burst, got %d", got)
	}
}

func TestNew_PlainBackend(t *testing.T) {
	b := New(memotl.BackendConfig{Service: memotl.ServiceLMStudio})
	if _, ok := b.(*LMStudioProvider); !ok {
		t.Errorf("expected unwrapped LM Studio provider, got %T", b)
	}
}

func TestRemoteProvider(t *testing.T) {
	out, err := NewRemoteProvider().Translate(context.Background(), TranslateRequest{Text: "オーブ"})
	if !errors.Is(err, memotl.ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
	if out != "オーブ" {
		t.Errorf("expected original text, got %q", out)
	}
}

func TestPassthroughProvider(t *testing.T) {
	out, err := NewPassthroughProvider().Translate(context.Background(), TranslateRequest{Text: "モード"})
	if !errors.Is(err, memotl.ErrPassthrough) {
		t.Errorf("expected ErrPassthrough, got %v", err)
	}
	if out != "モード" {
		t.Errorf("expected original text, got %q", out)
	}
}

func TestMockProvider(t *testing.T) {
	m := NewMockProvider()

	out, err := m.Translate(context.Background(), TranslateRequest{Text: "オーブ"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "宝珠" {
		t.Errorf("expected 宝珠, got %s", out)
	}

	out, _ = m.Translate(context.Background(), TranslateRequest{Text: "unknown"})
	if out != "[unknown]" {
		t.Errorf("expected bracketed fallback, got %s", out)
	}

	if m.CallCount() != 2 {
		t.Errorf("expected 2 calls, got %d", m.CallCount())
	}
	if m.LastRequest().Text != "unknown" {
		t.Errorf("unexpected last request: %+v", m.LastRequest())
	}

	m.Reset()
	if m.CallCount() != 0 || m.LastRequest() != nil {
		t.Error("Reset should clear state")
	}
}
