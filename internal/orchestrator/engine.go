// Package orchestrator runs generate calls across providers with
// automatic failover. It walks the registry's candidate sequence, draws a
// key from each provider's pool, attempts the call, folds the classified
// outcome back into the pool, and moves on until a provider succeeds or
// every candidate is exhausted.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quillforge/aiengine/internal/adapter"
	"github.com/quillforge/aiengine/internal/domain"
	"github.com/quillforge/aiengine/internal/metrics"
	"github.com/quillforge/aiengine/internal/registry"
)

// DefaultAttemptTimeout bounds one provider attempt, not the whole call.
const DefaultAttemptTimeout = 45 * time.Second

// Request is one generate call as the engine sees it.
type Request struct {
	Prompt       string  `json:"prompt"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	Model        string  `json:"model,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`

	// PreferredProvider is tried first when set and enabled. The
	// Model override above applies only to this provider; fallback
	// providers always use their own selected model.
	PreferredProvider domain.ProviderID `json:"preferred_provider,omitempty"`
}

// Attempt records one provider try within a call.
type Attempt struct {
	Provider domain.ProviderID `json:"provider"`
	Model    string            `json:"model,omitempty"`
	Key      string            `json:"key,omitempty"`
	Outcome  string            `json:"outcome"`
	Err      string            `json:"error,omitempty"`
	Latency  time.Duration     `json:"latency"`
}

// Result is the terminal outcome of a generate call. Exhaustion is a
// result, not an error: Success is false and Reason says why.
type Result struct {
	ID         string            `json:"id"`
	Success    bool              `json:"success"`
	Content    string            `json:"content,omitempty"`
	Provider   domain.ProviderID `json:"provider,omitempty"`
	Model      string            `json:"model,omitempty"`
	Usage      adapter.Usage     `json:"usage"`
	Attempts   []Attempt         `json:"attempts"`
	FailedOver bool              `json:"failed_over"`
	Reason     string            `json:"reason,omitempty"`
	Latency    time.Duration     `json:"latency"`
}

// ClientFactory resolves the adapter for a provider, swappable in tests.
type ClientFactory func(domain.ProviderID) (adapter.Client, error)

// Engine is the failover orchestrator.
type Engine struct {
	registry *registry.Registry
	clients  ClientFactory
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithClientFactory replaces the default adapter factory.
func WithClientFactory(f ClientFactory) Option {
	return func(e *Engine) {
		e.clients = f
	}
}

// WithAttemptTimeout bounds each provider attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an engine over the given registry.
func New(reg *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: reg,
		clients: func(id domain.ProviderID) (adapter.Client, error) {
			return adapter.ForProvider(id)
		},
		timeout: DefaultAttemptTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.Nop()
	}
	return e
}

// Generate runs one call through the failover sequence. It returns an
// error only for malformed input; every provider-side outcome, including
// full exhaustion, arrives as a Result.
func (e *Engine) Generate(ctx context.Context, req Request) (Result, error) {
	if req.Prompt == "" {
		return Result{}, errors.New("prompt is required")
	}

	result := Result{
		ID:       uuid.NewString(),
		Attempts: make([]Attempt, 0, 4),
	}
	start := time.Now()

	candidates := e.registry.Candidates(req.PreferredProvider)
	if len(candidates) == 0 {
		result.Reason = "no providers are enabled"
		result.Latency = time.Since(start)
		e.metrics.Requests.WithLabelValues("exhausted").Inc()
		return result, nil
	}

	for i, cand := range candidates {
		attempt := e.tryProvider(ctx, cand, req)
		result.Attempts = append(result.Attempts, attempt.record)

		e.metrics.Attempts.WithLabelValues(string(cand.Provider), attempt.record.Outcome).Inc()
		e.metrics.SetActiveKeys(cand.Provider, cand.Pool.ActiveLen())

		if attempt.ok {
			result.Success = true
			result.Content = attempt.content
			result.Provider = cand.Provider
			result.Model = attempt.record.Model
			result.Usage = attempt.usage
			result.FailedOver = i > 0
			result.Latency = time.Since(start)

			e.metrics.Requests.WithLabelValues("success").Inc()
			e.metrics.FailoverDepth.Observe(float64(i + 1))
			e.metrics.AttemptDuration.WithLabelValues(string(cand.Provider)).Observe(attempt.record.Latency.Seconds())

			e.logger.Info("generation succeeded",
				slog.String("request_id", result.ID),
				slog.String("provider", string(cand.Provider)),
				slog.String("model", result.Model),
				slog.Bool("failed_over", result.FailedOver),
				slog.Duration("latency", result.Latency),
			)
			return result, nil
		}

		e.logger.Warn("provider attempt failed",
			slog.String("request_id", result.ID),
			slog.String("provider", string(cand.Provider)),
			slog.String("outcome", attempt.record.Outcome),
			slog.String("error", attempt.record.Err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	result.Reason = "all providers failed; see attempts for details"
	if ctx.Err() != nil {
		result.Reason = "request cancelled: " + ctx.Err().Error()
	}
	result.Latency = time.Since(start)
	e.metrics.Requests.WithLabelValues("exhausted").Inc()
	e.metrics.FailoverDepth.Observe(float64(len(result.Attempts)))

	e.logger.Error("all providers exhausted",
		slog.String("request_id", result.ID),
		slog.Int("attempts", len(result.Attempts)),
	)
	return result, nil
}

// attemptOutcome bundles one provider try's result for the failover loop.
type attemptOutcome struct {
	ok      bool
	content string
	usage   adapter.Usage
	record  Attempt
}

// tryProvider draws a key and runs one attempt against one candidate.
func (e *Engine) tryProvider(ctx context.Context, cand registry.Candidate, req Request) attemptOutcome {
	model := cand.Model
	if req.Model != "" && req.PreferredProvider == cand.Provider {
		model = req.Model
	}

	record := Attempt{Provider: cand.Provider, Model: model}

	key, err := cand.Pool.NextKey()
	if err != nil {
		record.Outcome = "no_keys"
		record.Err = err.Error()
		return attemptOutcome{record: record}
	}
	record.Key = domain.MaskSecret(key.Secret)

	if model == "" {
		record.Outcome = string(adapter.KindEmpty)
		record.Err = fmt.Sprintf("no model selected for %s", cand.Provider)
		return attemptOutcome{record: record}
	}

	client, err := e.clients(cand.Provider)
	if err != nil {
		record.Outcome = string(adapter.KindTransport)
		record.Err = err.Error()
		return attemptOutcome{record: record}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	out, err := client.Generate(attemptCtx, key.Secret, adapter.GenerateRequest{
		Prompt:       req.Prompt,
		SystemPrompt: req.SystemPrompt,
		Model:        model,
		MaxTokens:    req.MaxTokens,
		Temperature:  req.Temperature,
	})
	record.Latency = time.Since(start)

	if err != nil {
		kind := adapter.KindOf(err)
		record.Outcome = string(kind)
		record.Err = err.Error()

		// Rate limits only push the key into cooldown; every other
		// failure, timeouts and dial errors included, counts toward
		// the disable threshold.
		cand.Pool.RecordFailure(key.Secret, kind == adapter.KindRateLimited)
		return attemptOutcome{record: record}
	}

	cand.Pool.RecordSuccess(key.Secret)
	record.Outcome = "success"
	return attemptOutcome{
		ok:      true,
		content: out.Content,
		usage:   out.Usage,
		record:  record,
	}
}
