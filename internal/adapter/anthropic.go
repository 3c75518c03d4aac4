// Package adapter provides implementations for external AI provider integrations.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/quillforge/aiengine/internal/domain"
)

// anthropicAPIVersion is the version header Anthropic requires on every call.
const anthropicAPIVersion = "2023-06-01"

// AnthropicClient implements Client for the Anthropic Messages API.
type AnthropicClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAnthropicClient creates a client for the Anthropic API.
func NewAnthropicClient(baseURL string, opts ...Option) *AnthropicClient {
	o := applyOptions(baseURL, opts)
	return &AnthropicClient{
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: o.httpClient,
	}
}

// Provider returns the vendor this client talks to.
func (c *AnthropicClient) Provider() domain.ProviderID {
	return domain.ProviderAnthropic
}

// anthropicMessage is one message on the wire.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicRequest is the Messages API request body. MaxTokens is
// mandatory on this API, unlike the other vendors.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

// anthropicResponse is the Messages API response body.
type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// anthropicModelList is the /models response body.
type anthropicModelList struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

// anthropicErrorResponse is the error envelope.
type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// defaultAnthropicMaxTokens is used when the caller leaves MaxTokens unset,
// since the Messages API rejects requests without it.
const defaultAnthropicMaxTokens = 1024

// ListModels enumerates the models the secret can access.
func (c *AnthropicClient) ListModels(ctx context.Context, secret string) ([]ModelInfo, error) {
	body, status, err := c.do(ctx, secret, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, httpError(domain.ProviderAnthropic, status, c.errorMessage(body))
	}

	var list anthropicModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, transportError(domain.ProviderAnthropic, fmt.Errorf("decode model list: %w", err))
	}

	models := make([]ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, ModelInfo{ID: m.ID, DisplayName: m.DisplayName})
	}
	return models, nil
}

// Generate performs a Messages API call with the given key.
func (c *AnthropicClient) Generate(ctx context.Context, secret string, req GenerateRequest) (GenerateResult, error) {
	wire := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Temperature,
		Messages: []anthropicMessage{
			{Role: "user", Content: req.Prompt},
		},
	}
	if wire.MaxTokens <= 0 {
		wire.MaxTokens = defaultAnthropicMaxTokens
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return GenerateResult{}, transportError(domain.ProviderAnthropic, fmt.Errorf("marshal request: %w", err))
	}

	body, status, err := c.do(ctx, secret, http.MethodPost, "/messages", payload)
	if err != nil {
		return GenerateResult{}, err
	}
	if status != http.StatusOK {
		return GenerateResult{}, httpError(domain.ProviderAnthropic, status, c.errorMessage(body))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return GenerateResult{}, transportError(domain.ProviderAnthropic, fmt.Errorf("decode response: %w", err))
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	content := sb.String()
	if strings.TrimSpace(content) == "" {
		return GenerateResult{}, emptyError(domain.ProviderAnthropic, status)
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return GenerateResult{
		Content: content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// do executes one HTTP exchange and returns the raw body and status.
func (c *AnthropicClient) do(ctx context.Context, secret, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, transportError(domain.ProviderAnthropic, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("x-api-key", secret)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(domain.ProviderAnthropic, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, transportError(domain.ProviderAnthropic, fmt.Errorf("read response: %w", err))
	}
	return body, resp.StatusCode, nil
}

// errorMessage extracts the vendor's error text from a failure body.
func (c *AnthropicClient) errorMessage(body []byte) string {
	var wire anthropicErrorResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		return wire.Error.Message
	}
	return strings.TrimSpace(string(body))
}
