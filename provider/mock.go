package provider

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZaguanLabs/memotl"
)

// MockProvider is a mock backend for testing.
type MockProvider struct {
	Translations map[string]string // Map of source text to translation
	Delay        time.Duration     // Simulated generation time
	Err          error             // Returned for every call when set

	callCount atomic.Int64
	mu        sync.Mutex
	last      *TranslateRequest
}

// NewMockProvider creates a new mock provider with default translations.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		Translations: map[string]string{
			"オーブ":      "宝珠",
			"モード":      "模式",
			"スペル":      "咒语",
			"アイテム":     "道具",
			"スキル":      "技能",
			"こんにちは、世界！": "你好，世界！",
		},
	}
}

// Name returns the backend name.
func (m *MockProvider) Name() string {
	return "mock"
}

// Translate returns mock translations. Unknown texts come back bracketed.
func (m *MockProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.last = &req
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", &memotl.ProviderError{Message: "mock cancelled", Cause: ctx.Err()}
		}
	}

	if m.Err != nil {
		return "", m.Err
	}
	if translation, ok := m.Translations[req.Text]; ok {
		return translation, nil
	}
	return "[" + req.Text + "]", nil
}

// CallCount returns the number of Translate calls.
func (m *MockProvider) CallCount() int {
	return int(m.callCount.Load())
}

// LastRequest returns the last request received.
func (m *MockProvider) LastRequest() *TranslateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Reset resets the call count and last request.
func (m *MockProvider) Reset() {
	m.callCount.Store(0)
	m.mu.Lock()
	m.last = nil
	m.mu.Unlock()
}

// Verify MockProvider implements Backend
var _ Backend = (*MockProvider)(nil)
