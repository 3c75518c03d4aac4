// Package validation determines whether a raw API key is usable for a
// provider and which models it can access. It delegates to the provider's
// adapter and filters the listing through the catalog's exclusion rules so
// only text-generating models survive.
package validation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/catalog"
	"github.com/quillforge/aiengine/internal/domain"
)

// Result is the outcome of testing one key against its provider.
type Result struct {
	// Valid is true when the key produced a non-empty model listing.
	Valid bool `json:"valid"`

	// Models is the filtered set of generative models the key can use.
	Models []adapter.ModelInfo `json:"models,omitempty"`

	// Err is a human-readable rejection reason when Valid is false.
	Err string `json:"error,omitempty"`

	// Kind classifies the failure when Valid is false.
	Kind adapter.ErrorKind `json:"kind,omitempty"`

	// Reached reports whether the probe made it to the vendor's HTTP
	// layer. Failures that reached the vendor count against the key
	// through the pool's normal failure path; pure dial failures do not.
	Reached bool `json:"-"`

	// ResponseTime is how long the probe took.
	ResponseTime time.Duration `json:"response_time"`
}

// ClientFactory resolves the adapter for a provider. It exists so tests
// and the registry can substitute fake clients.
type ClientFactory func(domain.ProviderID) (adapter.Client, error)

// Service validates keys against providers.
type Service struct {
	clients ClientFactory
	logger  *slog.Logger
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithClientFactory replaces the default adapter factory.
func WithClientFactory(f ClientFactory) Option {
	return func(s *Service) {
		s.clients = f
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a validation service backed by the real adapters.
func NewService(opts ...Option) *Service {
	s := &Service{
		clients: func(id domain.ProviderID) (adapter.Client, error) {
			return adapter.ForProvider(id)
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate probes a provider with the given secret by listing models.
// A successful listing with at least one generative model means the key is
// valid. The method never returns an error; rejection is part of Result.
func (s *Service) Validate(ctx context.Context, provider domain.ProviderID, secret string) Result {
	start := time.Now()

	client, err := s.clients(provider)
	if err != nil {
		return Result{
			Valid:        false,
			Err:          err.Error(),
			Kind:         adapter.KindTransport,
			ResponseTime: time.Since(start),
		}
	}

	models, err := client.ListModels(ctx, secret)
	elapsed := time.Since(start)

	if err != nil {
		kind := adapter.KindOf(err)
		reached := false
		var ae *adapter.Error
		if errors.As(err, &ae) {
			reached = ae.Reached()
		}

		s.logger.Warn("key validation failed",
			slog.String("provider", string(provider)),
			slog.String("key", domain.MaskSecret(secret)),
			slog.String("kind", string(kind)),
			slog.Duration("response_time", elapsed),
		)

		return Result{
			Valid:        false,
			Err:          humanReason(provider, kind, err),
			Kind:         kind,
			Reached:      reached,
			ResponseTime: elapsed,
		}
	}

	filtered := make([]adapter.ModelInfo, 0, len(models))
	for _, m := range models {
		if catalog.ExcludedModel(provider, m.ID) {
			continue
		}
		filtered = append(filtered, m)
	}

	if len(filtered) == 0 {
		return Result{
			Valid:        false,
			Err:          "key accepted but no usable text-generation models were found",
			Kind:         adapter.KindEmpty,
			Reached:      true,
			ResponseTime: elapsed,
		}
	}

	s.logger.Info("key validated",
		slog.String("provider", string(provider)),
		slog.String("key", domain.MaskSecret(secret)),
		slog.Int("models", len(filtered)),
		slog.Duration("response_time", elapsed),
	)

	return Result{
		Valid:        true,
		Models:       filtered,
		Reached:      true,
		ResponseTime: elapsed,
	}
}

// humanReason turns a classified failure into operator-facing text.
// Raw vendor wording stays in logs; the operator sees the classification.
func humanReason(provider domain.ProviderID, kind adapter.ErrorKind, err error) string {
	switch kind {
	case adapter.KindAuthFailed:
		return "key rejected by " + string(provider) + "; please re-enter"
	case adapter.KindRateLimited:
		return string(provider) + " is rate limiting this key; try again shortly"
	case adapter.KindEmpty:
		return "provider returned an empty model listing"
	default:
		return "could not reach " + string(provider) + ": " + err.Error()
	}
}
