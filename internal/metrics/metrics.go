// Package metrics exposes the engine's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quillforge/aiengine/internal/domain"
)

// Metrics holds every collector the engine emits.
type Metrics struct {
	// Attempts counts individual provider attempts by provider and
	// outcome (success, rate_limited, auth_failed, transport,
	// empty_result, no_keys).
	Attempts *prometheus.CounterVec

	// Requests counts whole generate calls by final outcome
	// (success, exhausted).
	Requests *prometheus.CounterVec

	// FailoverDepth observes how many providers a request tried before
	// settling.
	FailoverDepth prometheus.Histogram

	// ActiveKeys tracks usable (non-disabled) keys per provider.
	ActiveKeys *prometheus.GaugeVec

	// AttemptDuration observes per-attempt latency by provider.
	AttemptDuration *prometheus.HistogramVec
}

// New builds and registers the engine's collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aiengine",
			Name:      "attempts_total",
			Help:      "Provider attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aiengine",
			Name:      "requests_total",
			Help:      "Generate requests by final outcome.",
		}, []string{"outcome"}),
		FailoverDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "aiengine",
			Name:      "failover_depth",
			Help:      "Providers tried per request before settling.",
			Buckets:   []float64{1, 2, 3, 4},
		}),
		ActiveKeys: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "aiengine",
			Name:      "active_keys",
			Help:      "Usable keys per provider.",
		}, []string{"provider"}),
		AttemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aiengine",
			Name:      "attempt_duration_seconds",
			Help:      "Per-attempt latency by provider.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}

	reg.MustRegister(m.Attempts, m.Requests, m.FailoverDepth, m.ActiveKeys, m.AttemptDuration)
	return m
}

// Nop returns metrics backed by an unexposed registry, for callers that
// do not care about instrumentation.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

// SetActiveKeys records the current usable-key count for a provider.
func (m *Metrics) SetActiveKeys(provider domain.ProviderID, n int) {
	m.ActiveKeys.WithLabelValues(string(provider)).Set(float64(n))
}
