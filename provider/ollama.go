package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ZaguanLabs/memotl"
)

// OllamaProvider implements Backend using a local Ollama server.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

// OllamaConfig holds configuration for the Ollama provider.
type OllamaConfig struct {
	BaseURL string        // Server URL (default: "http://localhost:11434")
	Model   string        // Model to use (default: "llama2")
	Timeout time.Duration // HTTP timeout (0 = rely on the request context)
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(cfg OllamaConfig) *OllamaProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	model := cfg.Model
	if model == "" {
		model = "llama2"
	}

	return &OllamaProvider{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
}

// Name returns the backend name.
func (p *OllamaProvider) Name() string {
	return memotl.ServiceOllama.String()
}

// Translate sends one generate request and returns the trimmed response.
func (p *OllamaProvider) Translate(ctx context.Context, req TranslateRequest) (string, error) {
	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  p.model,
		Prompt: buildPrompt(req),
		Stream: false,
	})
	if err != nil {
		return "", &memotl.ProviderError{Message: "encoding ollama request", Cause: err}
	}

	respBody, err := p.do(ctx, http.MethodPost, "/api/generate", body)
	if err != nil {
		return "", err
	}

	var out ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", &memotl.ProviderError{Message: "invalid response format from ollama", Cause: err}
	}
	if out.Response == nil {
		return "", &memotl.ProviderError{Message: "ollama response has no \"response\" field"}
	}

	return strings.TrimSpace(*out.Response), nil
}

// ListModels returns the names of the models installed on the server.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]string, error) {
	respBody, err := p.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, &memotl.ProviderError{Message: "invalid model list from ollama", Cause: err}
	}

	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// ListOllamaModels lists the models installed on the Ollama server at baseURL.
func ListOllamaModels(ctx context.Context, baseURL string) ([]string, error) {
	return NewOllamaProvider(OllamaConfig{BaseURL: baseURL}).ListModels(ctx)
}

func (p *OllamaProvider) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return nil, &memotl.ProviderError{Message: "creating ollama request", Cause: err}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("User-Agent", memotl.UserAgent())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &memotl.ProviderError{
			Message:   "ollama request failed",
			Cause:     err,
			Retryable: !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &memotl.ProviderError{Message: "reading ollama response", Cause: err, Retryable: true}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &memotl.ProviderError{
			Message:    fmt.Sprintf("ollama returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)),
			StatusCode: resp.StatusCode,
			Retryable:  isRetryableStatus(resp.StatusCode),
		}
	}

	return respBody, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify OllamaProvider implements Backend
var _ Backend = (*OllamaProvider)(nil)
