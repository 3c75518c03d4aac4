// Package catalog holds the static descriptive metadata for every supported
// AI provider: endpoints, rate limits, and candidate models. It is pure
// data, immutable for the process lifetime, and not user-editable.
package catalog

import (
	"strings"
	"time"

	"github.com/quillforge/aiengine/internal/domain"
)

// Model describes one candidate model offered by a provider.
type Model struct {
	// ID is the vendor's model identifier, used on the wire.
	ID string `json:"id"`

	// DisplayName is a human-readable name for status output.
	DisplayName string `json:"display_name"`
}

// RateLimit describes a provider's published request budget.
type RateLimit struct {
	// RequestsPerMinute is the vendor's per-key request ceiling.
	RequestsPerMinute int `json:"requests_per_minute"`

	// RequestsPerDay is the vendor's daily request ceiling (0 = unpublished).
	RequestsPerDay int `json:"requests_per_day"`

	// Cooldown is the minimum spacing between two requests on one key,
	// derived from RequestsPerMinute with headroom for burst tolerance.
	Cooldown time.Duration `json:"cooldown"`
}

// Descriptor is the static metadata for one provider.
type Descriptor struct {
	// ID is the provider identifier used throughout the engine.
	ID domain.ProviderID `json:"id"`

	// DisplayName is the vendor's human-readable name.
	DisplayName string `json:"display_name"`

	// BaseURL is the provider's API endpoint.
	BaseURL string `json:"base_url"`

	// Models lists candidate models in preference order.
	Models []Model `json:"models"`

	// DefaultModel is the model used when none has been selected.
	DefaultModel string `json:"default_model"`

	// Limits is the provider's published rate limit.
	Limits RateLimit `json:"limits"`

	// excludedModelTerms marks model-id substrings that identify
	// non-generative variants (embeddings, audio, moderation). Models
	// matching any term are filtered out of validation results.
	excludedModelTerms []string
}

// descriptors is the closed provider set. Entries are never mutated after
// init; accessors hand out copies.
var descriptors = map[domain.ProviderID]Descriptor{
	domain.ProviderOpenAI: {
		ID:          domain.ProviderOpenAI,
		DisplayName: "OpenAI",
		BaseURL:     "https://api.openai.com/v1",
		Models: []Model{
			{ID: "gpt-4o", DisplayName: "GPT-4o"},
			{ID: "gpt-4o-mini", DisplayName: "GPT-4o mini"},
			{ID: "gpt-4-turbo", DisplayName: "GPT-4 Turbo"},
			{ID: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo"},
		},
		DefaultModel: "gpt-4o-mini",
		Limits: RateLimit{
			RequestsPerMinute: 500,
			RequestsPerDay:    10000,
			Cooldown:          200 * time.Millisecond,
		},
		excludedModelTerms: []string{
			"embedding", "whisper", "tts", "dall-e", "moderation",
			"audio", "realtime", "transcribe", "babbage", "davinci",
		},
	},
	domain.ProviderAnthropic: {
		ID:          domain.ProviderAnthropic,
		DisplayName: "Anthropic",
		BaseURL:     "https://api.anthropic.com/v1",
		Models: []Model{
			{ID: "claude-3-5-sonnet-20241022", DisplayName: "Claude 3.5 Sonnet"},
			{ID: "claude-3-5-haiku-20241022", DisplayName: "Claude 3.5 Haiku"},
			{ID: "claude-3-opus-20240229", DisplayName: "Claude 3 Opus"},
		},
		DefaultModel: "claude-3-5-sonnet-20241022",
		Limits: RateLimit{
			RequestsPerMinute: 50,
			RequestsPerDay:    0,
			Cooldown:          1200 * time.Millisecond,
		},
		excludedModelTerms: nil,
	},
	domain.ProviderGemini: {
		ID:          domain.ProviderGemini,
		DisplayName: "Google Gemini",
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		Models: []Model{
			{ID: "gemini-1.5-pro", DisplayName: "Gemini 1.5 Pro"},
			{ID: "gemini-1.5-flash", DisplayName: "Gemini 1.5 Flash"},
			{ID: "gemini-1.5-flash-8b", DisplayName: "Gemini 1.5 Flash 8B"},
		},
		DefaultModel: "gemini-1.5-flash",
		Limits: RateLimit{
			RequestsPerMinute: 15,
			RequestsPerDay:    1500,
			Cooldown:          4 * time.Second,
		},
		excludedModelTerms: []string{
			"embedding", "aqa", "text-bison", "chat-bison", "imagen",
		},
	},
	domain.ProviderGroq: {
		ID:          domain.ProviderGroq,
		DisplayName: "Groq",
		BaseURL:     "https://api.groq.com/openai/v1",
		Models: []Model{
			{ID: "llama-3.3-70b-versatile", DisplayName: "Llama 3.3 70B"},
			{ID: "llama-3.1-8b-instant", DisplayName: "Llama 3.1 8B"},
			{ID: "mixtral-8x7b-32768", DisplayName: "Mixtral 8x7B"},
		},
		DefaultModel: "llama-3.3-70b-versatile",
		Limits: RateLimit{
			RequestsPerMinute: 30,
			RequestsPerDay:    14400,
			Cooldown:          2 * time.Second,
		},
		excludedModelTerms: []string{
			"whisper", "guard", "tts",
		},
	},
}

// Get returns the descriptor for a provider. The second return value is
// false for unknown providers.
func Get(id domain.ProviderID) (Descriptor, bool) {
	d, ok := descriptors[id]
	if !ok {
		return Descriptor{}, false
	}
	out := d
	out.Models = make([]Model, len(d.Models))
	copy(out.Models, d.Models)
	return out, true
}

// All returns every descriptor in catalog order.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(descriptors))
	for _, id := range domain.AllProviders {
		d, _ := Get(id)
		out = append(out, d)
	}
	return out
}

// ExcludedModel reports whether a model id returned by the provider should
// be filtered out of discovered models because it cannot generate text.
// Matching is case-insensitive substring matching against the provider's
// exclusion terms.
func ExcludedModel(id domain.ProviderID, modelID string) bool {
	d, ok := descriptors[id]
	if !ok {
		return false
	}
	lower := strings.ToLower(modelID)
	for _, term := range d.excludedModelTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
