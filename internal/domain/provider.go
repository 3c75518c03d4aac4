// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the engine.
package domain

// ProviderID identifies one of the supported AI vendors.
// The set is closed: adapters exist only for the constants below.
type ProviderID string

const (
	ProviderOpenAI    ProviderID = "openai"
	ProviderAnthropic ProviderID = "anthropic"
	ProviderGemini    ProviderID = "gemini"
	ProviderGroq      ProviderID = "groq"
)

// AllProviders lists every supported provider in catalog order.
// This order doubles as the default failover order.
var AllProviders = []ProviderID{
	ProviderOpenAI,
	ProviderAnthropic,
	ProviderGemini,
	ProviderGroq,
}

// Known reports whether id names a supported provider.
func (p ProviderID) Known() bool {
	for _, known := range AllProviders {
		if p == known {
			return true
		}
	}
	return false
}

// DefaultOrder returns the built-in failover priority sequence.
// The returned slice is a copy and safe to mutate.
func DefaultOrder() []ProviderID {
	order := make([]ProviderID, len(AllProviders))
	copy(order, AllProviders)
	return order
}

// NormalizeOrder filters an operator-supplied failover order down to known,
// unique provider identifiers. Unknown entries are dropped silently rather
// than rejected, so a stale persisted order never blocks startup.
func NormalizeOrder(ids []ProviderID) []ProviderID {
	seen := make(map[ProviderID]struct{}, len(ids))
	order := make([]ProviderID, 0, len(ids))
	for _, id := range ids {
		if !id.Known() {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	return order
}
