package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ZaguanLabs/memotl"
	"github.com/ZaguanLabs/memotl/cache"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float32 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatServer(t *testing.T, status int, body string, got *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestLMStudioProvider_Defaults(t *testing.T) {
	p := NewLMStudioProvider(LMStudioConfig{})

	if p.model != "local-model" {
		t.Errorf("expected default model local-model, got %s", p.model)
	}
	if p.temperature != 0.1 {
		t.Errorf("expected default temperature 0.1, got %v", p.temperature)
	}
	if p.Name() != "lmstudio" {
		t.Errorf("expected name lmstudio, got %s", p.Name())
	}
}

func TestLMStudioProvider_Translate(t *testing.T) {
	var got chatRequest
	server := chatServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": " 模式 \n"}, "finish_reason": "stop"}]
	}`, &got)
	defer server.Close()

	p := NewLMStudioProvider(LMStudioConfig{BaseURL: server.URL, Model: "qwen"})

	out, err := p.Translate(context.Background(), TranslateRequest{
		Text:       "モード",
		SourceLang: "ja",
		TargetLang: "zh-CN",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "模式" {
		t.Errorf("expected trimmed translation, got %q", out)
	}
	if got.Model != "qwen" {
		t.Errorf("expected model qwen, got %s", got.Model)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Fatalf("expected one user message, got %+v", got.Messages)
	}
}

func TestLMStudioProvider_NoChoices(t *testing.T) {
	server := chatServer(t, http.StatusOK, `{"id":"x","choices":[]}`, nil)
	defer server.Close()

	p := NewLMStudioProvider(LMStudioConfig{BaseURL: server.URL})
	_, err := p.Translate(context.Background(), TranslateRequest{Text: "アイテム"})

	var provErr *memotl.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.Retryable {
		t.Error("empty choices should not be retryable")
	}
}

func TestLMStudioProvider_MissingContent(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no content field", `{"choices":[{"message":{"role":"assistant"}}]}`},
		{"blank content", `{"choices":[{"message":{"role":"assistant","content":"  \n"}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatServer(t, http.StatusOK, tt.body, nil)
			defer server.Close()

			p := NewLMStudioProvider(LMStudioConfig{BaseURL: server.URL})
			_, err := p.Translate(context.Background(), TranslateRequest{Text: "アイテム"})

			var provErr *memotl.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if provErr.Retryable {
				t.Error("missing content should not be retryable")
			}

			store := cache.New(nil)
			tr := memotl.NewTranslator(store, p)
			res := tr.Lookup(context.Background(), "アイテム", "ja", "zh-CN")
			if res.Text != "アイテム" || res.Outcome != memotl.OutcomePassthrough {
				t.Errorf("expected original text as passthrough, got %+v", res)
			}
			if got, ok := store.Get("アイテム"); ok && got != "アイテム" {
				t.Errorf("expected original text or nothing cached, got %q", got)
			}
		})
	}
}

func TestLMStudioProvider_BlankInput(t *testing.T) {
	server := chatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":""}}]}`, nil)
	defer server.Close()

	p := NewLMStudioProvider(LMStudioConfig{BaseURL: server.URL})
	out, err := p.Translate(context.Background(), TranslateRequest{Text: " "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty output, got %q", out)
	}
}

func TestLMStudioProvider_HTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		retryable bool
	}{
		{"api error", http.StatusBadRequest, `{"error":{"message":"bad model","type":"invalid_request_error"}}`, false},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, true},
		{"server error without body", http.StatusBadGateway, `oops`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := chatServer(t, tt.status, tt.body, nil)
			defer server.Close()

			p := NewLMStudioProvider(LMStudioConfig{BaseURL: server.URL})
			_, err := p.Translate(context.Background(), TranslateRequest{Text: "スキル"})

			var provErr *memotl.ProviderError
			if !errors.As(err, &provErr) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if provErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, provErr.StatusCode)
			}
			if provErr.Retryable != tt.retryable {
				t.Errorf("expected Retryable=%v, got %v", tt.retryable, provErr.Retryable)
			}
		})
	}
}
