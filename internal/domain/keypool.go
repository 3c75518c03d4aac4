// Package domain contains the core business entities and value objects.
package domain

import (
	"errors"
	"sync"
	"time"
)

// ErrNoKeysAvailable is returned when the pool is empty or every key is disabled.
var ErrNoKeysAvailable = errors.New("no keys available in the pool")

const (
	// MaxConsecutiveFailures is the number of consecutive non-rate-limit
	// failures after which a key is automatically disabled.
	MaxConsecutiveFailures = 10

	// RateLimitCooldown is how far a rate-limited key's LastUsed timestamp
	// is pushed into the future. The key re-enters rotation afterwards
	// without touching its failure counter.
	RateLimitCooldown = 60 * time.Second
)

// KeyPool owns the credentials for one provider and selects the best
// candidate for the next call. Selection is round-robin among keys that
// satisfy the provider's inter-request cooldown; when every key is hot the
// least-recently-used one is returned anyway, because availability beats
// strict rate-limit compliance (the vendor's own 429 is the backstop).
//
// All methods are safe for concurrent use. Counter mutations are advisory
// load-spreading state, but the pool serializes them behind a mutex so
// concurrent in-flight calls never observe torn updates.
type KeyPool struct {
	provider ProviderID
	cooldown time.Duration

	mu   sync.RWMutex
	keys []*Credential

	// now is swappable for tests.
	now func() time.Time
}

// NewKeyPool creates an empty pool for the given provider. The cooldown is
// the provider's minimum inter-request spacing; individual keys may carry a
// longer override.
func NewKeyPool(provider ProviderID, cooldown time.Duration) *KeyPool {
	return &KeyPool{
		provider: provider,
		cooldown: cooldown,
		keys:     make([]*Credential, 0),
		now:      time.Now,
	}
}

// Provider returns the provider this pool belongs to.
func (p *KeyPool) Provider() ProviderID {
	return p.provider
}

// AddKey inserts a new credential unless the same (provider, secret) pair
// already exists, in which case the call is a no-op. Returns true if the
// key was added.
func (p *KeyPool) AddKey(secret, label string) bool {
	if secret == "" {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.find(secret) != nil {
		return false
	}

	p.keys = append(p.keys, &Credential{
		Secret:   secret,
		Provider: p.provider,
		Label:    label,
	})
	return true
}

// NextKey returns a snapshot of the best candidate for the next call and
// stamps its selection (usage count, last-used) before returning.
//
// Selection rules:
//  1. Disabled keys are skipped.
//  2. Among keys past their cooldown, the one with the oldest LastUsed
//     wins (pure round-robin among eligible keys).
//  3. If every key is inside its cooldown window, the least-recently-used
//     key is returned anyway rather than refusing the call.
//
// Returns ErrNoKeysAvailable when the pool is empty or fully disabled.
func (p *KeyPool) NextKey() (Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	var eligible, fallback *Credential

	for _, k := range p.keys {
		if k.Disabled {
			continue
		}

		if fallback == nil || k.LastUsed.Before(fallback.LastUsed) {
			fallback = k
		}

		cooldown := p.cooldown
		if k.CooldownOverride > cooldown {
			cooldown = k.CooldownOverride
		}
		if now.Sub(k.LastUsed) < cooldown {
			continue
		}
		if eligible == nil || k.LastUsed.Before(eligible.LastUsed) {
			eligible = k
		}
	}

	selected := eligible
	if selected == nil {
		selected = fallback
	}
	if selected == nil {
		return Credential{}, ErrNoKeysAvailable
	}

	selected.UsageCount++
	selected.LastUsed = now
	return *selected, nil
}

// RecordSuccess marks a successful call with the given key: the
// consecutive-failure counter resets and LastUsed advances.
func (p *KeyPool) RecordSuccess(secret string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := p.find(secret)
	if k == nil {
		return
	}
	k.FailureCount = 0
	k.LastUsed = p.now()
}

// RecordFailure marks a failed call with the given key.
//
// Rate-limited failures never count toward the disable threshold; they only
// push LastUsed into the future so the key sits out RateLimitCooldown.
// Every other failure increments the counter and disables the key once it
// reaches MaxConsecutiveFailures.
func (p *KeyPool) RecordFailure(secret string, rateLimited bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := p.find(secret)
	if k == nil {
		return
	}

	if rateLimited {
		k.LastUsed = p.now().Add(RateLimitCooldown)
		return
	}

	k.FailureCount++
	if k.FailureCount >= MaxConsecutiveFailures {
		k.Disabled = true
	}
}

// MarkValidated records that the key passed validation against its provider.
func (p *KeyPool) MarkValidated(secret string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := p.find(secret)
	if k == nil {
		return
	}
	k.Validated = true
	k.ValidatedAt = p.now()
}

// EnableKey is the operator override that returns a key to rotation:
// it clears the disabled flag and resets the failure counter.
func (p *KeyPool) EnableKey(secret string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	k := p.find(secret)
	if k == nil {
		return
	}
	k.Disabled = false
	k.FailureCount = 0
}

// Remove deletes a key from the pool. Removing a key that does not exist
// is a no-op.
func (p *KeyPool) Remove(secret string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, k := range p.keys {
		if k.Secret == secret {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			return
		}
	}
}

// HasValidatedKey reports whether at least one non-disabled key has passed
// validation. This is the precondition for enabling a provider.
func (p *KeyPool) HasValidatedKey() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, k := range p.keys {
		if k.Validated && !k.Disabled {
			return true
		}
	}
	return false
}

// Len returns the total number of keys in the pool.
func (p *KeyPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.keys)
}

// ActiveLen returns the number of keys currently in rotation.
func (p *KeyPool) ActiveLen() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	active := 0
	for _, k := range p.keys {
		if !k.Disabled {
			active++
		}
	}
	return active
}

// Snapshot returns copies of every credential, in insertion order.
func (p *KeyPool) Snapshot() []Credential {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Credential, len(p.keys))
	for i, k := range p.keys {
		out[i] = *k
	}
	return out
}

// Restore replaces the pool contents with previously exported credentials.
// Entries for other providers or duplicate secrets are dropped. Restored
// keys keep their validation and disabled state; trust is not re-derived.
func (p *KeyPool) Restore(creds []Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keys = p.keys[:0]
	seen := make(map[string]struct{}, len(creds))
	for _, c := range creds {
		if c.Secret == "" {
			continue
		}
		if c.Provider != "" && c.Provider != p.provider {
			continue
		}
		if _, dup := seen[c.Secret]; dup {
			continue
		}
		seen[c.Secret] = struct{}{}

		cred := c
		cred.Provider = p.provider
		p.keys = append(p.keys, &cred)
	}
}

// find returns the credential with the given secret, or nil.
// Caller must hold p.mu.
func (p *KeyPool) find(secret string) *Credential {
	for _, k := range p.keys {
		if k.Secret == secret {
			return k
		}
	}
	return nil
}
