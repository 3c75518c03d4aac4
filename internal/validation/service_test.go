package validation

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/domain"
)

// fakeClient is a scriptable adapter for validation tests.
type fakeClient struct {
	provider domain.ProviderID
	models   []adapter.ModelInfo
	err      error
}

func (f *fakeClient) Provider() domain.ProviderID { return f.provider }

func (f *fakeClient) ListModels(ctx context.Context, secret string) ([]adapter.ModelInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.models, nil
}

func (f *fakeClient) Generate(ctx context.Context, secret string, req adapter.GenerateRequest) (adapter.GenerateResult, error) {
	return adapter.GenerateResult{}, errors.New("not implemented")
}

func newFakeService(client *fakeClient) *Service {
	return NewService(WithClientFactory(func(id domain.ProviderID) (adapter.Client, error) {
		client.provider = id
		return client, nil
	}))
}

func TestValidate_Success(t *testing.T) {
	svc := newFakeService(&fakeClient{
		models: []adapter.ModelInfo{
			{ID: "gpt-4o"},
			{ID: "gpt-4o-mini"},
		},
	})

	result := svc.Validate(context.Background(), domain.ProviderOpenAI, "sk-good")
	if !result.Valid {
		t.Fatalf("Valid = false, err = %s", result.Err)
	}
	if len(result.Models) != 2 {
		t.Errorf("len(Models) = %d, want 2", len(result.Models))
	}
	if !result.Reached {
		t.Error("Reached = false for a successful probe")
	}
}

func TestValidate_FiltersNonGenerativeModels(t *testing.T) {
	svc := newFakeService(&fakeClient{
		models: []adapter.ModelInfo{
			{ID: "gpt-4o"},
			{ID: "text-embedding-3-small"},
			{ID: "whisper-1"},
			{ID: "tts-1"},
		},
	})

	result := svc.Validate(context.Background(), domain.ProviderOpenAI, "sk-good")
	if !result.Valid {
		t.Fatalf("Valid = false, err = %s", result.Err)
	}
	if len(result.Models) != 1 || result.Models[0].ID != "gpt-4o" {
		t.Errorf("Models = %+v, want only gpt-4o", result.Models)
	}
}

func TestValidate_OnlyExcludedModels(t *testing.T) {
	svc := newFakeService(&fakeClient{
		models: []adapter.ModelInfo{
			{ID: "text-embedding-3-small"},
			{ID: "text-embedding-3-large"},
		},
	})

	result := svc.Validate(context.Background(), domain.ProviderOpenAI, "sk-embeddings-only")
	if result.Valid {
		t.Error("Valid = true with no generative models")
	}
	if result.Kind != adapter.KindEmpty {
		t.Errorf("Kind = %s, want %s", result.Kind, adapter.KindEmpty)
	}
}

func TestValidate_AuthFailure(t *testing.T) {
	svc := newFakeService(&fakeClient{
		err: &adapter.Error{
			Provider:   domain.ProviderOpenAI,
			Kind:       adapter.KindAuthFailed,
			StatusCode: http.StatusUnauthorized,
			Message:    "Incorrect API key provided",
		},
	})

	result := svc.Validate(context.Background(), domain.ProviderOpenAI, "sk-bad")
	if result.Valid {
		t.Error("Valid = true for a rejected key")
	}
	if result.Kind != adapter.KindAuthFailed {
		t.Errorf("Kind = %s, want %s", result.Kind, adapter.KindAuthFailed)
	}
	if !result.Reached {
		t.Error("Reached = false for an HTTP 401")
	}
	if result.Err == "" {
		t.Error("Err is empty, want a human-readable reason")
	}
}

func TestValidate_DialFailureNotReached(t *testing.T) {
	svc := newFakeService(&fakeClient{
		err: &adapter.Error{
			Provider: domain.ProviderGemini,
			Kind:     adapter.KindTransport,
			Message:  "dial tcp: connection refused",
		},
	})

	result := svc.Validate(context.Background(), domain.ProviderGemini, "AIza-test")
	if result.Valid {
		t.Error("Valid = true for a transport failure")
	}
	if result.Reached {
		t.Error("Reached = true for a dial failure")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	svc := NewService()

	result := svc.Validate(context.Background(), "mystery", "whatever")
	if result.Valid {
		t.Error("Valid = true for an unknown provider")
	}
}
