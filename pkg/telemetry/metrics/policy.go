package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/warden/pkg/config"
)

// PolicyMetrics tracks metrics related to policy step evaluation.
//
// Metrics:
//   - warden_policy_evaluations_total: step evaluations by policy kind and verdict
//   - warden_policy_evaluation_duration_seconds: step evaluation duration
type PolicyMetrics struct {
	// Total step evaluations
	evaluationsTotal *prometheus.CounterVec

	// Step evaluation duration histogram
	evaluationDuration *prometheus.HistogramVec
}

// NewPolicyMetrics creates and registers policy metrics with the provided registry.
func NewPolicyMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_evaluations_total",
				Help:      "Total number of policy step evaluations",
			},
			[]string{"policy", "verdict"},
		),

		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "policy_evaluation_duration_seconds",
				Help:      "Duration of policy step evaluation in seconds",
				// Steps are in-memory checks and should stay in the microsecond range
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15), // 1µs to 16ms
			},
			[]string{"policy"},
		),
	}

	registry.MustRegister(
		pm.evaluationsTotal,
		pm.evaluationDuration,
	)

	return pm
}

// RecordEvaluation records a policy step evaluation.
//
// Example:
//
//	pm.RecordEvaluation("rate_limit", "deny", 1500*time.Nanosecond)
func (pm *PolicyMetrics) RecordEvaluation(policy, verdict string, duration time.Duration) {
	pm.evaluationsTotal.WithLabelValues(policy, verdict).Inc()
	pm.evaluationDuration.WithLabelValues(policy).Observe(duration.Seconds())
}
