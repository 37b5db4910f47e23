package memotl

import (
	"strings"
	"time"
)

// Service identifies a translation backend.
type Service int

const (
	// ServicePassthrough returns every text unchanged. Unknown service names resolve to it.
	ServicePassthrough Service = iota
	// ServiceOllama is a local Ollama server (POST /api/generate).
	ServiceOllama
	// ServiceLMStudio is a local LM Studio server (OpenAI-compatible chat completions).
	ServiceLMStudio
	// ServiceRemote is the remote API placeholder. It never makes network calls.
	ServiceRemote
)

// ParseService maps a configured service name to a Service.
// Anything it does not recognise falls back to ServicePassthrough.
func ParseService(name string) Service {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ollama", "local-a":
		return ServiceOllama
	case "lmstudio", "lm-studio", "local-b":
		return ServiceLMStudio
	case "online", "remote":
		return ServiceRemote
	default:
		return ServicePassthrough
	}
}

func (s Service) String() string {
	switch s {
	case ServiceOllama:
		return "ollama"
	case ServiceLMStudio:
		return "lmstudio"
	case ServiceRemote:
		return "remote"
	default:
		return "passthrough"
	}
}

// BackendConfig selects and configures one backend. It is resolved into a
// Backend once per configuration load (see provider.New).
type BackendConfig struct {
	Service Service

	OllamaURL   string // Base URL of the Ollama server (default: http://localhost:11434)
	OllamaModel string // Model name (default: llama2)

	LMStudioURL         string  // Base URL of the LM Studio server (default: http://localhost:1234)
	LMStudioModel       string  // Model name (default: local-model)
	LMStudioTemperature float32 // Sampling temperature (default: 0.1)

	Timeout time.Duration // HTTP timeout per request (0 = none)

	Retry     *RetryConfig     // Optional retry wrapper
	RateLimit *RateLimitConfig // Optional rate limit wrapper
	Breaker   *BreakerConfig   // Optional circuit breaker wrapper
}

// TranslateRequest contains the parameters for a single backend call.
type TranslateRequest struct {
	Text       string
	SourceLang string
	TargetLang string
}

// Outcome tags how a Result was produced.
type Outcome int

const (
	// OutcomeTranslated means a backend produced the text during this call.
	OutcomeTranslated Outcome = iota
	// OutcomeCached means the text came from the cache.
	OutcomeCached
	// OutcomePassthrough means no translation was obtained and Text is the input.
	OutcomePassthrough
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTranslated:
		return "translated"
	case OutcomeCached:
		return "cached"
	default:
		return "passthrough"
	}
}

// Result is the outcome of one translation attempt.
type Result struct {
	Text    string  // Translation, or the original text on passthrough
	Outcome Outcome // How Text was produced
	Backend string  // Backend name, empty for cache hits
	Shared  bool    // Caller waited on another caller's in-flight request
	Err     error   // Cause of a passthrough, nil otherwise
}

// Translated reports whether Text is an actual translation rather than the input.
func (r Result) Translated() bool {
	return r.Outcome != OutcomePassthrough
}
