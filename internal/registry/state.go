package registry

import (
	"time"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/domain"
)

// State is the serializable snapshot of the whole registry: the failover
// order plus every provider's keys, enabled flag, model selection and
// discovered models. It is what Export produces, Import consumes, and the
// store persists between runs.
type State struct {
	Order     []domain.ProviderID                  `json:"order"`
	Providers map[domain.ProviderID]ProviderRecord `json:"providers"`
}

// ProviderRecord is one provider's slice of the state blob.
type ProviderRecord struct {
	Enabled       bool                `json:"enabled"`
	SelectedModel string              `json:"selected_model,omitempty"`
	Validated     bool                `json:"validated"`
	LastValidated time.Time           `json:"last_validated,omitempty"`
	Models        []adapter.ModelInfo `json:"models,omitempty"`
	Keys          []domain.Credential `json:"keys,omitempty"`
}

// Export captures the registry's full state as a self-contained blob.
func (r *Registry) Export() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := State{
		Order:     make([]domain.ProviderID, len(r.order)),
		Providers: make(map[domain.ProviderID]ProviderRecord, len(r.states)),
	}
	copy(state.Order, r.order)

	for id, ps := range r.states {
		models := make([]adapter.ModelInfo, len(ps.models))
		copy(models, ps.models)

		state.Providers[id] = ProviderRecord{
			Enabled:       ps.enabled,
			SelectedModel: ps.selectedModel,
			Validated:     ps.validated,
			LastValidated: ps.lastValidated,
			Models:        models,
			Keys:          ps.pool.Snapshot(),
		}
	}
	return state
}

// Import replaces the registry's state with a previously exported blob.
// Records for unknown providers are dropped; a provider absent from the
// blob is reset to its empty state. The enabled flag is re-checked against
// the enable preconditions so a hand-edited blob cannot smuggle in an
// enabled provider with no validated key.
func (r *Registry) Import(state State) {
	r.mu.Lock()
	r.order = domain.NormalizeOrder(state.Order)
	if len(r.order) == 0 {
		r.order = domain.DefaultOrder()
	}

	for id, ps := range r.states {
		rec, ok := state.Providers[id]
		if !ok {
			ps.enabled = false
			ps.selectedModel = ""
			ps.models = nil
			ps.validated = false
			ps.lastValidated = time.Time{}
			ps.pool.Restore(nil)
			continue
		}

		ps.pool.Restore(rec.Keys)
		ps.selectedModel = rec.SelectedModel
		ps.models = make([]adapter.ModelInfo, len(rec.Models))
		copy(ps.models, rec.Models)
		ps.validated = rec.Validated
		ps.lastValidated = rec.LastValidated
		ps.enabled = rec.Enabled && ps.pool.HasValidatedKey() && ps.selectedModel != ""
	}
	r.mu.Unlock()

	r.persist()
}
