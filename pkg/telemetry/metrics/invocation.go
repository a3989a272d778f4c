package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/warden/pkg/config"
)

// InvocationMetrics tracks wrapped operation calls.
//
// Metrics:
//   - warden_invocations_total: calls by owner, operation and outcome
//   - warden_invocation_duration_seconds: time from entry to result, including
//     confirmation waits
//   - warden_denials_total: suppressed calls by policy and cause
type InvocationMetrics struct {
	invocationsTotal   *prometheus.CounterVec
	invocationDuration *prometheus.HistogramVec
	denialsTotal       *prometheus.CounterVec
}

// NewInvocationMetrics creates and registers invocation metrics with the provided registry.
func NewInvocationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *InvocationMetrics {
	im := &InvocationMetrics{
		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "invocations_total",
				Help:      "Total number of intercepted operation calls",
			},
			[]string{"owner", "operation", "outcome"},
		),

		invocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "invocation_duration_seconds",
				Help:      "Duration of intercepted calls in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"owner", "operation"},
		),

		denialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "denials_total",
				Help:      "Total number of suppressed operation calls",
			},
			[]string{"owner", "operation", "policy", "cause"},
		),
	}

	registry.MustRegister(
		im.invocationsTotal,
		im.invocationDuration,
		im.denialsTotal,
	)

	return im
}

// RecordInvocation records one finished call.
//
// Example:
//
//	im.RecordInvocation("leaderboard", "submitScore", "denied", 80*time.Microsecond)
func (im *InvocationMetrics) RecordInvocation(owner, operation, outcome string, duration time.Duration) {
	im.invocationsTotal.WithLabelValues(owner, operation, outcome).Inc()
	im.invocationDuration.WithLabelValues(owner, operation).Observe(duration.Seconds())
}

// RecordDenial records a suppressed call. cause is "policy" or
// "user_cancelled".
func (im *InvocationMetrics) RecordDenial(owner, operation, policy, cause string) {
	im.denialsTotal.WithLabelValues(owner, operation, policy, cause).Inc()
}
