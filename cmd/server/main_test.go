// End-to-end tests simulating the complete flow:
// Client → HTTP API → Engine → Provider (mocked vendor servers).
// The real wire adapters run against httptest servers, so classification,
// key rotation and failover are exercised exactly as in production.
package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/domain"
	"github.com/quillforge/aiengine/internal/handler"
	"github.com/quillforge/aiengine/internal/orchestrator"
	"github.com/quillforge/aiengine/internal/registry"
	"github.com/quillforge/aiengine/internal/validation"
)

const (
	rateLimitedKey = "sk-rate-limited-key-000001"
	healthyKey     = "sk-healthy-key-0000000001"
	geminiKey      = "AIza-healthy-key-00000001"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockOpenAI simulates the OpenAI API: model listing always succeeds,
// generation depends on which key arrives.
func mockOpenAI(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Authorization")

		if r.URL.Path == "/models" {
			w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"}]}`))
			return
		}

		switch key {
		case "Bearer " + rateLimitedKey:
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"rate_limit_error"}}`))
		case "Bearer " + healthyKey:
			json.NewEncoder(w).Encode(map[string]any{
				"model": "gpt-4o",
				"choices": []map[string]any{
					{"message": map[string]string{"role": "assistant", "content": "from openai"}},
				},
				"usage": map[string]int{"prompt_tokens": 3, "completion_tokens": 5, "total_tokens": 8},
			})
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
		}
	}))
}

// mockGemini simulates the Gemini API.
func mockGemini(t *testing.T) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.Write([]byte(`{"models":[{"name":"models/gemini-1.5-flash","supportedGenerationMethods":["generateContent"]}]}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": "from gemini"}}}},
			},
			"usageMetadata": map[string]int{"totalTokenCount": 9},
		})
	}))
}

// buildStack wires a full server stack whose adapters point at the mocks.
func buildStack(t *testing.T, openaiURL, geminiURL string) *gin.Engine {
	t.Helper()

	factory := func(id domain.ProviderID) (adapter.Client, error) {
		switch id {
		case domain.ProviderOpenAI:
			return adapter.NewOpenAIClient(id, openaiURL), nil
		case domain.ProviderGemini:
			return adapter.NewGeminiClient(geminiURL), nil
		default:
			return adapter.ForProvider(id)
		}
	}

	reg := registry.New(registry.WithValidator(
		validation.NewService(validation.WithClientFactory(factory)),
	))
	engine := orchestrator.New(reg, orchestrator.WithClientFactory(factory))
	api := handler.NewAPI(engine, reg)

	router := gin.New()
	router.Use(handler.RequestIDMiddleware())
	api.Register(router)
	router.GET("/health", api.HandleHealth)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func putJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestE2E_ValidateEnableGenerate(t *testing.T) {
	openai := mockOpenAI(t)
	defer openai.Close()
	gemini := mockGemini(t)
	defer gemini.Close()

	router := buildStack(t, openai.URL, gemini.URL)

	// Validate the key through the real wire adapter.
	w := postJSON(t, router, "/v1/providers/openai/keys/test", map[string]string{"key": healthyKey})
	if w.Code != http.StatusOK {
		t.Fatalf("test key: status = %d, body = %s", w.Code, w.Body.String())
	}
	var vr validation.Result
	if err := json.Unmarshal(w.Body.Bytes(), &vr); err != nil {
		t.Fatal(err)
	}
	if !vr.Valid || len(vr.Models) != 2 {
		t.Fatalf("validation result = %+v", vr)
	}

	// Enable and generate.
	if w := putJSON(t, router, "/v1/providers/openai/enabled", map[string]bool{"enabled": true}); w.Code != http.StatusOK {
		t.Fatalf("enable: status = %d, body = %s", w.Code, w.Body.String())
	}

	w = postJSON(t, router, "/v1/generate", map[string]string{"prompt": "say hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: status = %d, body = %s", w.Code, w.Body.String())
	}

	var result orchestrator.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Content != "from openai" {
		t.Errorf("Content = %q", result.Content)
	}
	if result.Usage.TotalTokens != 8 {
		t.Errorf("TotalTokens = %d, want 8", result.Usage.TotalTokens)
	}
}

func TestE2E_FailoverToSecondProvider(t *testing.T) {
	openai := mockOpenAI(t)
	defer openai.Close()
	gemini := mockGemini(t)
	defer gemini.Close()

	router := buildStack(t, openai.URL, gemini.URL)

	// openai holds only a key the vendor rate-limits on generation.
	postJSON(t, router, "/v1/providers/openai/keys/test", map[string]string{"key": rateLimitedKey})
	putJSON(t, router, "/v1/providers/openai/enabled", map[string]bool{"enabled": true})

	postJSON(t, router, "/v1/providers/gemini/keys/test", map[string]string{"key": geminiKey})
	putJSON(t, router, "/v1/providers/gemini/enabled", map[string]bool{"enabled": true})

	w := postJSON(t, router, "/v1/generate", map[string]string{"prompt": "say hello"})
	if w.Code != http.StatusOK {
		t.Fatalf("generate: status = %d, body = %s", w.Code, w.Body.String())
	}

	var result orchestrator.Result
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Provider != domain.ProviderGemini {
		t.Errorf("Provider = %s, want gemini after openai rate limit", result.Provider)
	}
	if !result.FailedOver {
		t.Error("FailedOver = false")
	}
	if result.Attempts[0].Outcome != string(adapter.KindRateLimited) {
		t.Errorf("first attempt outcome = %s", result.Attempts[0].Outcome)
	}
	if result.Content != "from gemini" {
		t.Errorf("Content = %q", result.Content)
	}
}

func TestE2E_BadKeyRejectedAtValidation(t *testing.T) {
	openai := mockOpenAI(t)
	defer openai.Close()

	// Model listing always succeeds on the mock, so aim validation at a
	// server that rejects it.
	badVendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer badVendor.Close()

	router := buildStack(t, badVendor.URL, badVendor.URL)

	w := postJSON(t, router, "/v1/providers/openai/keys/test", map[string]string{"key": "sk-bogus-key-0000000001"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var vr validation.Result
	if err := json.Unmarshal(w.Body.Bytes(), &vr); err != nil {
		t.Fatal(err)
	}
	if vr.Valid {
		t.Error("Valid = true for a rejected key")
	}
	if vr.Kind != adapter.KindAuthFailed {
		t.Errorf("Kind = %s, want %s", vr.Kind, adapter.KindAuthFailed)
	}

	// The provider cannot be enabled with only a rejected key.
	if w := putJSON(t, router, "/v1/providers/openai/enabled", map[string]bool{"enabled": true}); w.Code != http.StatusConflict {
		t.Errorf("enable status = %d, want 409", w.Code)
	}
}
