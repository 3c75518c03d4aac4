// Package domain contains the core business entities and value objects.
package domain

import "time"

// Credential represents a single API key together with its usage and health
// bookkeeping. A credential is uniquely identified by (provider, secret).
type Credential struct {
	// Secret is the raw API key string.
	Secret string `json:"secret"`

	// Provider associates this credential with a specific vendor.
	Provider ProviderID `json:"provider"`

	// Label is an optional human-readable identifier for this key.
	Label string `json:"label,omitempty"`

	// UsageCount tracks how many times this key has been selected.
	UsageCount int64 `json:"usage_count"`

	// LastUsed is when the key was last selected. A rate-limited failure
	// pushes this into the future to enforce a temporary cooldown.
	LastUsed time.Time `json:"last_used"`

	// FailureCount is the number of consecutive non-rate-limit failures.
	FailureCount int `json:"failure_count"`

	// Disabled marks the key as removed from rotation, either after the
	// failure threshold was crossed or by explicit operator action.
	Disabled bool `json:"disabled"`

	// Validated indicates the key passed validation against its provider.
	Validated bool `json:"validated"`

	// ValidatedAt is when validation last succeeded.
	ValidatedAt time.Time `json:"validated_at,omitempty"`

	// CooldownOverride extends the provider's minimum inter-request
	// cooldown for this key when the vendor asked it to back off further.
	CooldownOverride time.Duration `json:"cooldown_override,omitempty"`
}

// MaskedSecret returns a log-safe rendition of the secret.
func (c Credential) MaskedSecret() string {
	return MaskSecret(c.Secret)
}

// MaskSecret masks an API key for logs and status output, keeping just
// enough of the prefix and suffix to tell keys apart.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 12 {
		return "***"
	}
	return secret[:8] + "..." + secret[len(secret)-4:]
}
