package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/ZaguanLabs/memotl"
)

// LMStudioProvider implements Backend using LM Studio's OpenAI-compatible
// chat completions endpoint.
type LMStudioProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// LMStudioConfig holds configuration for the LM Studio provider.
type LMStudioConfig struct {
	BaseURL     string        // Server URL without the /v1 suffix (default: "http://localhost:1234")
	Model       string        // Model to use (default: "local-model")
	Temperature float32       // Temperature for generation (default: 0.1)
	APIKey      string        // Optional; LM Studio ignores it
	Timeout     time.Duration // HTTP timeout (0 = rely on the request context)
}

// NewLMStudioProvider creates a new LM Studio provider.
func NewLMStudioProvider(cfg LMStudioConfig) *LMStudioProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:1234"
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = baseURL + "/v1"
	config.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	model := cfg.Model
	if model == "" {
		model = "local-model"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}

	return &LMStudioProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
	}
}

// Name returns the backend name.
func (p *LMStudioProvider) Name() string {
	return memotl.ServiceLMStudio.String()
}

// Translate sends one chat completion request and returns the trimmed reply.
func (p *LMStudioProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
		Temperature: p.temperature,
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &memotl.ProviderError{
			Message:   "no choices in LM Studio response",
			Retryable: false,
		}
	}

	// go-openai decodes a missing content field as "", so an empty reply to
	// non-blank input is treated as malformed.
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" && strings.TrimSpace(req.Text) != "" {
		return "", &memotl.ProviderError{
			Message:   "empty content in LM Studio response",
			Retryable: false,
		}
	}

	return content, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &memotl.ProviderError{
			Message:    "LM Studio API call failed",
			Cause:      err,
			StatusCode: apiErr.HTTPStatusCode,
			Retryable:  isRetryableStatus(apiErr.HTTPStatusCode),
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &memotl.ProviderError{
			Message:    "LM Studio API call failed",
			Cause:      err,
			StatusCode: reqErr.HTTPStatusCode,
			Retryable:  isRetryableStatus(reqErr.HTTPStatusCode),
		}
	}

	return &memotl.ProviderError{
		Message:   "LM Studio request failed",
		Cause:     err,
		Retryable: !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded),
	}
}

// Verify LMStudioProvider implements Backend
var _ Backend = (*LMStudioProvider)(nil)
