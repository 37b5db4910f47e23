package provider

import (
	"github.com/ZaguanLabs/memotl"
)

// New resolves cfg into a Backend. Network backends are wrapped, innermost
// first, with rate limiting, retry and a circuit breaker when configured:
// every attempt, retries included, takes a rate limit token, and the breaker
// sees one failure per exhausted retry sequence.
func New(cfg memotl.BackendConfig) Backend {
	var backend Backend
	switch cfg.Service {
	case memotl.ServiceOllama:
		backend = NewOllamaProvider(OllamaConfig{
			BaseURL: cfg.OllamaURL,
			Model:   cfg.OllamaModel,
			Timeout: cfg.Timeout,
		})
	case memotl.ServiceLMStudio:
		backend = NewLMStudioProvider(LMStudioConfig{
			BaseURL:     cfg.LMStudioURL,
			Model:       cfg.LMStudioModel,
			Temperature: cfg.LMStudioTemperature,
			Timeout:     cfg.Timeout,
		})
	case memotl.ServiceRemote:
		return NewRemoteProvider()
	default:
		return NewPassthroughProvider()
	}

	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerMinute > 0 {
		backend = memotl.NewRateLimitedBackend(backend, *cfg.RateLimit)
	}
	if cfg.Retry != nil && cfg.Retry.MaxRetries > 0 {
		backend = memotl.NewRetryableBackend(backend, *cfg.Retry)
	}
	if cfg.Breaker != nil {
		backend = memotl.NewBreakerBackend(backend, *cfg.Breaker)
	}
	return backend
}
