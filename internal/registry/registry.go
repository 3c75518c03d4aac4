// Package registry is the process-wide coordination point of the engine.
// It owns one key pool and validation/enabled state per provider, the
// failover ordering preference, and import/export of the whole state blob.
//
// A Registry is an explicit, constructed object passed to call sites;
// Default() keeps the one-per-process convenience for the common case but
// nothing depends on it architecturally.
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/catalog"
	"github.com/quillforge/aiengine/internal/domain"
	"github.com/quillforge/aiengine/internal/validation"
)

// Validator tests a raw key against a provider. Satisfied by
// *validation.Service; swappable in tests.
type Validator interface {
	Validate(ctx context.Context, provider domain.ProviderID, secret string) validation.Result
}

// Persister durably stores the registry's exported state. The registry
// treats it as opaque storage with no schema obligations.
type Persister interface {
	Save(state State) error
}

// providerState is the mutable per-provider record.
type providerState struct {
	enabled       bool
	selectedModel string
	models        []adapter.ModelInfo
	validated     bool
	lastValidated time.Time
	pool          *domain.KeyPool
}

// Registry aggregates per-provider state and the failover order.
// All methods are safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	states map[domain.ProviderID]*providerState
	order  []domain.ProviderID

	validator Validator
	store     Persister
	logger    *slog.Logger
}

// Option is a functional option for configuring Registry.
type Option func(*Registry)

// WithValidator replaces the default validation service.
func WithValidator(v Validator) Option {
	return func(r *Registry) {
		r.validator = v
	}
}

// WithStore attaches a persistence collaborator. Every mutating operation
// saves the exported state best-effort; persistence failures are logged,
// never surfaced to the operator path.
func WithStore(p Persister) Option {
	return func(r *Registry) {
		r.store = p
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates a registry with one empty key pool per catalog provider and
// the built-in failover order.
func New(opts ...Option) *Registry {
	r := &Registry{
		states: make(map[domain.ProviderID]*providerState),
		order:  domain.DefaultOrder(),
		logger: slog.Default(),
	}

	for _, desc := range catalog.All() {
		r.states[desc.ID] = &providerState{
			pool: domain.NewKeyPool(desc.ID, desc.Limits.Cooldown),
		}
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.validator == nil {
		r.validator = validation.NewService(validation.WithLogger(r.logger))
	}

	return r
}

// defaultRegistry holds the process-wide convenience instance.
var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry, creating it on first call.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// ResetDefault discards the process-wide instance. Testing only.
func ResetDefault() {
	defaultOnce = sync.Once{}
	defaultRegistry = nil
}

// SetKey stores a key candidate for a provider without validating it.
// Adding a duplicate (provider, secret) pair is a no-op.
func (r *Registry) SetKey(provider domain.ProviderID, secret, label string) bool {
	state := r.state(provider)
	if state == nil {
		return false
	}

	added := state.pool.AddKey(secret, label)
	if added {
		r.logger.Info("key stored",
			slog.String("provider", string(provider)),
			slog.String("key", domain.MaskSecret(secret)),
		)
		r.persist()
	}
	return added
}

// TestKey validates a key against its provider and folds the outcome into
// the provider state: a valid key is marked validated, the discovered-model
// set is replaced, and the first model is auto-selected when none is. The
// raw validation result is returned either way.
//
// The key is stored first if it was not already, so testing an unsaved key
// behaves like SetKey followed by TestKey.
func (r *Registry) TestKey(ctx context.Context, provider domain.ProviderID, secret string) validation.Result {
	state := r.state(provider)
	if state == nil {
		return validation.Result{Valid: false, Err: "unknown provider " + string(provider)}
	}

	state.pool.AddKey(secret, "")

	// The probe is a network call; it runs outside the registry lock.
	result := r.validator.Validate(ctx, provider, secret)

	r.mu.Lock()
	if result.Valid {
		state.pool.MarkValidated(secret)
		state.models = result.Models
		state.validated = true
		state.lastValidated = time.Now()
		if state.selectedModel == "" && len(result.Models) > 0 {
			state.selectedModel = result.Models[0].ID
			r.logger.Info("model auto-selected",
				slog.String("provider", string(provider)),
				slog.String("model", state.selectedModel),
			)
		}
	} else if result.Reached {
		// The vendor saw the key and said no: this goes through the
		// pool's normal failure path. Pure dial failures do not.
		state.pool.RecordFailure(secret, result.Kind == adapter.KindRateLimited)
	}
	r.mu.Unlock()

	r.persist()
	return result
}

// SelectModel changes a provider's selected model. The change is accepted
// only if the model is among the discovered models; otherwise the prior
// selection is retained and false is returned.
func (r *Registry) SelectModel(provider domain.ProviderID, modelID string) bool {
	state := r.state(provider)
	if state == nil {
		return false
	}

	r.mu.Lock()
	known := false
	for _, m := range state.models {
		if m.ID == modelID {
			known = true
			break
		}
	}
	if known {
		state.selectedModel = modelID
	}
	r.mu.Unlock()

	if !known {
		r.logger.Warn("model selection ignored",
			slog.String("provider", string(provider)),
			slog.String("model", modelID),
		)
		return false
	}

	r.persist()
	return true
}

// SetEnabled flips a provider on or off. Enabling requires at least one
// validated key and a selected model; an unmet precondition leaves state
// unchanged and returns false. Disabling always succeeds.
func (r *Registry) SetEnabled(provider domain.ProviderID, enabled bool) bool {
	state := r.state(provider)
	if state == nil {
		return false
	}

	r.mu.Lock()
	if enabled {
		if !state.pool.HasValidatedKey() {
			r.mu.Unlock()
			r.logger.Warn("cannot enable provider without a validated key",
				slog.String("provider", string(provider)),
			)
			return false
		}
		if state.selectedModel == "" {
			r.mu.Unlock()
			r.logger.Warn("cannot enable provider without a selected model",
				slog.String("provider", string(provider)),
			)
			return false
		}
	}
	state.enabled = enabled
	r.mu.Unlock()

	r.logger.Info("provider toggled",
		slog.String("provider", string(provider)),
		slog.Bool("enabled", enabled),
	)
	r.persist()
	return true
}

// RemoveKey deletes a key from a provider's pool. Removing a key that does
// not exist is a no-op. Removing the last validated key drops the
// provider's validated flag and disables it, keeping the enable
// precondition true at all times.
func (r *Registry) RemoveKey(provider domain.ProviderID, secret string) {
	state := r.state(provider)
	if state == nil {
		return
	}
	state.pool.Remove(secret)

	r.mu.Lock()
	state.validated = state.pool.HasValidatedKey()
	if state.enabled && !state.validated {
		state.enabled = false
		r.logger.Warn("provider disabled: last validated key removed",
			slog.String("provider", string(provider)),
		)
	}
	r.mu.Unlock()

	r.persist()
}

// EnableKey is the operator override that returns a disabled key to
// rotation, clearing its failure counter.
func (r *Registry) EnableKey(provider domain.ProviderID, secret string) {
	state := r.state(provider)
	if state == nil {
		return
	}
	state.pool.EnableKey(secret)
	r.persist()
}

// SetOrder replaces the failover ordering preference. Unknown provider
// identifiers are dropped silently.
func (r *Registry) SetOrder(order []domain.ProviderID) {
	normalized := domain.NormalizeOrder(order)

	r.mu.Lock()
	r.order = normalized
	r.mu.Unlock()

	r.persist()
}

// Order returns the configured failover order.
func (r *Registry) Order() []domain.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProviderID, len(r.order))
	copy(out, r.order)
	return out
}

// Candidate is one provider the orchestrator may try, in failover order.
type Candidate struct {
	Provider domain.ProviderID
	Model    string
	Pool     *domain.KeyPool
}

// Candidates computes the failover sequence for one generate call: the
// preferred provider first when given and enabled, then the configured
// order, then any enabled providers missing from the order in catalog
// order. Disabled providers are skipped throughout.
func (r *Registry) Candidates(preferred domain.ProviderID) []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[domain.ProviderID]struct{}, len(r.states))
	out := make([]Candidate, 0, len(r.states))

	appendCandidate := func(id domain.ProviderID) {
		if _, dup := seen[id]; dup {
			return
		}
		state, ok := r.states[id]
		if !ok || !state.enabled {
			return
		}
		seen[id] = struct{}{}
		out = append(out, Candidate{
			Provider: id,
			Model:    state.selectedModel,
			Pool:     state.pool,
		})
	}

	if preferred != "" {
		appendCandidate(preferred)
	}
	for _, id := range r.order {
		appendCandidate(id)
	}
	for _, id := range domain.AllProviders {
		appendCandidate(id)
	}

	return out
}

// ProviderStatus is a read-only view of one provider's state.
type ProviderStatus struct {
	Provider      domain.ProviderID   `json:"provider"`
	DisplayName   string              `json:"display_name"`
	Enabled       bool                `json:"enabled"`
	Validated     bool                `json:"validated"`
	LastValidated time.Time           `json:"last_validated,omitempty"`
	SelectedModel string              `json:"selected_model,omitempty"`
	Models        []adapter.ModelInfo `json:"models,omitempty"`
	TotalKeys     int                 `json:"total_keys"`
	ActiveKeys    int                 `json:"active_keys"`
	Keys          []domain.Credential `json:"-"`
}

// Status returns the view for one provider.
func (r *Registry) Status(provider domain.ProviderID) (ProviderStatus, bool) {
	state := r.state(provider)
	if state == nil {
		return ProviderStatus{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statusLocked(provider, state), true
}

// Statuses returns every provider's view in the configured failover order,
// with providers missing from the order appended in catalog order.
func (r *Registry) Statuses() []ProviderStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[domain.ProviderID]struct{}, len(r.states))
	out := make([]ProviderStatus, 0, len(r.states))

	appendStatus := func(id domain.ProviderID) {
		if _, dup := seen[id]; dup {
			return
		}
		state, ok := r.states[id]
		if !ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, r.statusLocked(id, state))
	}

	for _, id := range r.order {
		appendStatus(id)
	}
	for _, id := range domain.AllProviders {
		appendStatus(id)
	}
	return out
}

// EnabledProviders returns the views of enabled providers only, in
// failover order.
func (r *Registry) EnabledProviders() []ProviderStatus {
	all := r.Statuses()
	out := make([]ProviderStatus, 0, len(all))
	for _, s := range all {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// statusLocked builds a status view. Caller must hold r.mu.
func (r *Registry) statusLocked(id domain.ProviderID, state *providerState) ProviderStatus {
	desc, _ := catalog.Get(id)

	models := make([]adapter.ModelInfo, len(state.models))
	copy(models, state.models)

	return ProviderStatus{
		Provider:      id,
		DisplayName:   desc.DisplayName,
		Enabled:       state.enabled,
		Validated:     state.validated,
		LastValidated: state.lastValidated,
		SelectedModel: state.selectedModel,
		Models:        models,
		TotalKeys:     state.pool.Len(),
		ActiveKeys:    state.pool.ActiveLen(),
		Keys:          state.pool.Snapshot(),
	}
}

// state returns the record for a provider, or nil for unknown providers.
func (r *Registry) state(provider domain.ProviderID) *providerState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[provider]
}

// persist saves the exported state through the attached store, if any.
func (r *Registry) persist() {
	if r.store == nil {
		return
	}
	if err := r.store.Save(r.Export()); err != nil {
		r.logger.Error("failed to persist registry state",
			slog.String("error", err.Error()),
		)
	}
}
