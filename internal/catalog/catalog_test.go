package catalog

import (
	"testing"

	"github.com/quillforge/aiengine/internal/domain"
)

func TestGet_AllProvidersPresent(t *testing.T) {
	for _, id := range domain.AllProviders {
		d, ok := Get(id)
		if !ok {
			t.Fatalf("Get(%s): no descriptor", id)
		}
		if d.BaseURL == "" {
			t.Errorf("%s: empty BaseURL", id)
		}
		if len(d.Models) == 0 {
			t.Errorf("%s: no candidate models", id)
		}
		if d.Limits.Cooldown <= 0 {
			t.Errorf("%s: cooldown must be positive, got %v", id, d.Limits.Cooldown)
		}

		// The default model must be among the candidates.
		found := false
		for _, m := range d.Models {
			if m.ID == d.DefaultModel {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("%s: default model %q not in candidate list", id, d.DefaultModel)
		}
	}
}

func TestGet_UnknownProvider(t *testing.T) {
	if _, ok := Get("mystery"); ok {
		t.Error("Get(mystery) = ok, want missing")
	}
}

func TestGet_ReturnsCopy(t *testing.T) {
	d, _ := Get(domain.ProviderOpenAI)
	d.Models[0].ID = "mutated"

	again, _ := Get(domain.ProviderOpenAI)
	if again.Models[0].ID == "mutated" {
		t.Error("descriptor models shared with caller; Get must return a copy")
	}
}

func TestExcludedModel(t *testing.T) {
	tests := []struct {
		provider domain.ProviderID
		model    string
		excluded bool
	}{
		{domain.ProviderOpenAI, "gpt-4o", false},
		{domain.ProviderOpenAI, "text-embedding-3-small", true},
		{domain.ProviderOpenAI, "whisper-1", true},
		{domain.ProviderOpenAI, "TTS-1-hd", true},
		{domain.ProviderGemini, "gemini-1.5-pro", false},
		{domain.ProviderGemini, "models/text-embedding-004", true},
		{domain.ProviderGemini, "aqa", true},
		{domain.ProviderGroq, "llama-3.1-8b-instant", false},
		{domain.ProviderGroq, "whisper-large-v3", true},
		{domain.ProviderAnthropic, "claude-3-5-sonnet-20241022", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider)+"/"+tt.model, func(t *testing.T) {
			if got := ExcludedModel(tt.provider, tt.model); got != tt.excluded {
				t.Errorf("ExcludedModel(%s, %s) = %v, want %v",
					tt.provider, tt.model, got, tt.excluded)
			}
		})
	}
}

func TestAll_CatalogOrder(t *testing.T) {
	all := All()
	if len(all) != len(domain.AllProviders) {
		t.Fatalf("All() returned %d descriptors, want %d", len(all), len(domain.AllProviders))
	}
	for i, d := range all {
		if d.ID != domain.AllProviders[i] {
			t.Errorf("All()[%d] = %s, want %s", i, d.ID, domain.AllProviders[i])
		}
	}
}
