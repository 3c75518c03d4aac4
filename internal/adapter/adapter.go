// Package adapter provides implementations for external AI provider
// integrations. It uses the Adapter pattern to abstract provider-specific
// APIs behind a common interface: each vendor client translates the
// engine's generic request into its wire format and classifies every
// failure into a structured error before it reaches the orchestrator.
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/quillforge/aiengine/internal/catalog"
	"github.com/quillforge/aiengine/internal/domain"
)

// DefaultTimeout is the default HTTP client timeout for provider calls.
const DefaultTimeout = 30 * time.Second

// ModelInfo describes one model discovered through a provider's listing
// endpoint.
type ModelInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
}

// GenerateRequest is the generic text-generation request every adapter
// must translate into its vendor's wire format.
type GenerateRequest struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
}

// Usage carries token accounting reported by the vendor.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResult is a successful generation outcome. Content is always
// non-empty; an empty completion surfaces as a KindEmpty error instead.
type GenerateResult struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Usage   Usage  `json:"usage"`
}

// Client is the calling contract every provider adapter satisfies.
// Implementations must be safe for concurrent use; the secret travels with
// each call so one client instance serves an entire key pool.
type Client interface {
	// Provider returns the vendor this client talks to.
	Provider() domain.ProviderID

	// ListModels enumerates the models the secret can access.
	// Used by the validation service; an auth failure here means the
	// key is unusable.
	ListModels(ctx context.Context, secret string) ([]ModelInfo, error)

	// Generate performs a text generation call with the given key.
	Generate(ctx context.Context, secret string, req GenerateRequest) (GenerateResult, error)
}

// Option is a functional option shared by all adapter constructors.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL overrides the catalog endpoint (useful for proxies and tests).
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if o.httpClient == nil {
			o.httpClient = &http.Client{}
		}
		o.httpClient.Timeout = timeout
	}
}

func applyOptions(defaultURL string, opts []Option) options {
	o := options{
		baseURL:    defaultURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient.Timeout == 0 {
		o.httpClient.Timeout = DefaultTimeout
	}
	return o
}

// ForProvider returns the adapter for a provider. The provider set is
// closed; selection happens by identifier tag, not runtime type inspection.
// Groq speaks the OpenAI wire format and reuses that client with its own
// endpoint.
func ForProvider(id domain.ProviderID, opts ...Option) (Client, error) {
	desc, ok := catalog.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", id)
	}

	switch id {
	case domain.ProviderOpenAI, domain.ProviderGroq:
		return NewOpenAIClient(id, desc.BaseURL, opts...), nil
	case domain.ProviderAnthropic:
		return NewAnthropicClient(desc.BaseURL, opts...), nil
	case domain.ProviderGemini:
		return NewGeminiClient(desc.BaseURL, opts...), nil
	default:
		return nil, fmt.Errorf("no adapter for provider %q", id)
	}
}
