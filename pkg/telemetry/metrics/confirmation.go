package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/warden/pkg/config"
)

// ConfirmationMetrics tracks questions put to the user.
//
// Metrics:
//   - warden_confirmations_pending: calls currently blocked on an answer
//   - warden_confirmations_total: answers by owner, operation and answer
//     ("approved", "declined", "failed")
//   - warden_confirmation_wait_seconds: time spent waiting for an answer
type ConfirmationMetrics struct {
	pending  *prometheus.GaugeVec
	total    *prometheus.CounterVec
	waitTime *prometheus.HistogramVec
}

// NewConfirmationMetrics creates and registers confirmation metrics with the provided registry.
func NewConfirmationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ConfirmationMetrics {
	cm := &ConfirmationMetrics{
		pending: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "confirmations_pending",
				Help:      "Number of calls waiting for user confirmation",
			},
			[]string{"owner", "operation"},
		),

		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "confirmations_total",
				Help:      "Total number of confirmation answers",
			},
			[]string{"owner", "operation", "answer"},
		),

		waitTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "confirmation_wait_seconds",
				Help:      "Time spent waiting for user confirmation in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"owner", "operation"},
		),
	}

	registry.MustRegister(
		cm.pending,
		cm.total,
		cm.waitTime,
	)

	return cm
}

// Started marks a call as waiting.
func (cm *ConfirmationMetrics) Started(owner, operation string) {
	cm.pending.WithLabelValues(owner, operation).Inc()
}

// Finished records the answer and releases the waiting call.
func (cm *ConfirmationMetrics) Finished(owner, operation, answer string, waited time.Duration) {
	cm.pending.WithLabelValues(owner, operation).Dec()
	cm.total.WithLabelValues(owner, operation, answer).Inc()
	cm.waitTime.WithLabelValues(owner, operation).Observe(waited.Seconds())
}
