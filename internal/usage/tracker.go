// Package usage accumulates token consumption per provider so operators
// can see where their quota is going.
package usage

import (
	"sync"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/domain"
)

// ProviderUsage is the accumulated consumption for one provider.
type ProviderUsage struct {
	Requests     int64            `json:"requests"`
	PromptTokens int64            `json:"prompt_tokens"`
	OutputTokens int64            `json:"output_tokens"`
	TotalTokens  int64            `json:"total_tokens"`
	ByModel      map[string]int64 `json:"by_model,omitempty"`
}

// Tracker is a thread-safe usage accumulator.
type Tracker struct {
	mu        sync.RWMutex
	providers map[domain.ProviderID]*ProviderUsage
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		providers: make(map[domain.ProviderID]*ProviderUsage),
	}
}

// Record folds one successful generation into the totals.
func (t *Tracker) Record(provider domain.ProviderID, model string, u adapter.Usage) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pu, ok := t.providers[provider]
	if !ok {
		pu = &ProviderUsage{ByModel: make(map[string]int64)}
		t.providers[provider] = pu
	}

	pu.Requests++
	pu.PromptTokens += int64(u.PromptTokens)
	pu.OutputTokens += int64(u.CompletionTokens)
	pu.TotalTokens += int64(u.TotalTokens)
	if model != "" {
		pu.ByModel[model] += int64(u.TotalTokens)
	}
}

// Report returns a copy of the per-provider totals.
func (t *Tracker) Report() map[domain.ProviderID]ProviderUsage {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[domain.ProviderID]ProviderUsage, len(t.providers))
	for id, pu := range t.providers {
		byModel := make(map[string]int64, len(pu.ByModel))
		for m, n := range pu.ByModel {
			byModel[m] = n
		}
		copied := *pu
		copied.ByModel = byModel
		out[id] = copied
	}
	return out
}

// Reset clears all totals. Testing only.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers = make(map[domain.ProviderID]*ProviderUsage)
}
