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

// OpenAIClient implements Client for the OpenAI chat-completions wire
// format. Groq exposes the same protocol on its own endpoint, so the same
// client serves both providers; only the identifier tag and base URL differ.
type OpenAIClient struct {
	provider   domain.ProviderID
	baseURL    string
	httpClient *http.Client
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(provider domain.ProviderID, baseURL string, opts ...Option) *OpenAIClient {
	o := applyOptions(baseURL, opts)
	return &OpenAIClient{
		provider:   provider,
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: o.httpClient,
	}
}

// Provider returns the vendor this client talks to.
func (c *OpenAIClient) Provider() domain.ProviderID {
	return c.provider
}

// openAIMessage is one chat message on the wire.
type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openAIChatRequest is the chat-completions request body.
type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

// openAIChatResponse is the chat-completions response body.
type openAIChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// openAIModelList is the /models response body.
type openAIModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// openAIErrorResponse is the error envelope shared by OpenAI and Groq.
type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ListModels enumerates the models the secret can access.
func (c *OpenAIClient) ListModels(ctx context.Context, secret string) ([]ModelInfo, error) {
	body, status, err := c.do(ctx, secret, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, httpError(c.provider, status, c.errorMessage(body))
	}

	var list openAIModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, transportError(c.provider, fmt.Errorf("decode model list: %w", err))
	}

	models := make([]ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, ModelInfo{ID: m.ID})
	}
	return models, nil
}

// Generate performs a chat-completion call with the given key.
func (c *OpenAIClient) Generate(ctx context.Context, secret string, req GenerateRequest) (GenerateResult, error) {
	wire := openAIChatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		wire.Messages = append(wire.Messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	wire.Messages = append(wire.Messages, openAIMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(wire)
	if err != nil {
		return GenerateResult{}, transportError(c.provider, fmt.Errorf("marshal request: %w", err))
	}

	body, status, err := c.do(ctx, secret, http.MethodPost, "/chat/completions", payload)
	if err != nil {
		return GenerateResult{}, err
	}
	if status != http.StatusOK {
		return GenerateResult{}, httpError(c.provider, status, c.errorMessage(body))
	}

	var resp openAIChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return GenerateResult{}, transportError(c.provider, fmt.Errorf("decode response: %w", err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return GenerateResult{}, emptyError(c.provider, status)
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}

	return GenerateResult{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// do executes one HTTP exchange and returns the raw body and status.
func (c *OpenAIClient) do(ctx context.Context, secret, method, path string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, transportError(c.provider, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+secret)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(c.provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, transportError(c.provider, fmt.Errorf("read response: %w", err))
	}
	return body, resp.StatusCode, nil
}

// errorMessage extracts the vendor's error text from a failure body.
func (c *OpenAIClient) errorMessage(body []byte) string {
	var wire openAIErrorResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		return wire.Error.Message
	}
	return strings.TrimSpace(string(body))
}
