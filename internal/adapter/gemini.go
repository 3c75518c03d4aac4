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

// GeminiClient implements Client for the Google Gemini API. The engine's
// generic request is translated into a generateContent call; Gemini keeps
// the system prompt in a dedicated systemInstruction block.
type GeminiClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient creates a client for the Gemini API.
func NewGeminiClient(baseURL string, opts ...Option) *GeminiClient {
	o := applyOptions(baseURL, opts)
	return &GeminiClient{
		baseURL:    strings.TrimSuffix(o.baseURL, "/"),
		httpClient: o.httpClient,
	}
}

// Provider returns the vendor this client talks to.
func (c *GeminiClient) Provider() domain.ProviderID {
	return domain.ProviderGemini
}

// geminiContent represents a content block in Gemini format.
type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

// geminiPart represents a part of a content block.
type geminiPart struct {
	Text string `json:"text,omitempty"`
}

// geminiGenerationConfig contains generation parameters.
type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// geminiRequest represents a generateContent request.
type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig,omitempty"`
}

// geminiResponse represents a generateContent response.
type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

// geminiModelList is the /models response body.
type geminiModelList struct {
	Models []struct {
		Name                       string   `json:"name"`
		DisplayName                string   `json:"displayName"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
}

// geminiErrorResponse represents an error response from the Gemini API.
type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ListModels enumerates the models the secret can access. Models that do
// not support generateContent are dropped here; catalog exclusion rules
// apply a second, provider-specific filter during validation.
func (c *GeminiClient) ListModels(ctx context.Context, secret string) ([]ModelInfo, error) {
	url := fmt.Sprintf("%s/models?key=%s", c.baseURL, secret)

	body, status, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, httpError(domain.ProviderGemini, status, c.errorMessage(body))
	}

	var list geminiModelList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, transportError(domain.ProviderGemini, fmt.Errorf("decode model list: %w", err))
	}

	models := make([]ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		supported := false
		for _, method := range m.SupportedGenerationMethods {
			if method == "generateContent" {
				supported = true
				break
			}
		}
		if !supported {
			continue
		}
		models = append(models, ModelInfo{
			// The API reports names as "models/<id>".
			ID:          strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
		})
	}
	return models, nil
}

// Generate performs a generateContent call with the given key.
func (c *GeminiClient) Generate(ctx context.Context, secret string, req GenerateRequest) (GenerateResult, error) {
	wire := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
	}
	if req.SystemPrompt != "" {
		wire.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}
	if req.Temperature > 0 {
		wire.GenerationConfig.Temperature = &req.Temperature
	}
	if req.MaxTokens > 0 {
		wire.GenerationConfig.MaxOutputTokens = &req.MaxTokens
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return GenerateResult{}, transportError(domain.ProviderGemini, fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, req.Model, secret)
	body, status, err := c.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return GenerateResult{}, err
	}
	if status != http.StatusOK {
		return GenerateResult{}, httpError(domain.ProviderGemini, status, c.errorMessage(body))
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return GenerateResult{}, transportError(domain.ProviderGemini, fmt.Errorf("decode response: %w", err))
	}

	content := ""
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		content = resp.Candidates[0].Content.Parts[0].Text
	}
	if strings.TrimSpace(content) == "" {
		return GenerateResult{}, emptyError(domain.ProviderGemini, status)
	}

	result := GenerateResult{
		Content: content,
		Model:   req.Model,
	}
	if resp.UsageMetadata != nil {
		result.Usage = Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		}
	}
	return result, nil
}

// do executes one HTTP exchange and returns the raw body and status.
func (c *GeminiClient) do(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, 0, transportError(domain.ProviderGemini, fmt.Errorf("create request: %w", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, transportError(domain.ProviderGemini, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, transportError(domain.ProviderGemini, fmt.Errorf("read response: %w", err))
	}
	return body, resp.StatusCode, nil
}

// errorMessage extracts the vendor's error text from a failure body.
func (c *GeminiClient) errorMessage(body []byte) string {
	var wire geminiErrorResponse
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error.Message != "" {
		return wire.Error.Message
	}
	return strings.TrimSpace(string(body))
}
