package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/intercept"
)

// Collector is the main orchestrator for all Prometheus metrics in Warden.
// It observes every intercepted call and every confirmation, and exposes
// the results on its own registry.
//
// The collector keeps label sets bounded: once MaxCardinality distinct
// owner/operation pairs have been seen, new pairs are recorded as "other".
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Invocation metrics
	invocationMetrics *InvocationMetrics

	// Policy step metrics
	policyMetrics *PolicyMetrics

	// Confirmation metrics
	confirmationMetrics *ConfirmationMetrics

	// Cardinality tracking
	cardinalityLimiter *CardinalityLimiter
}

var (
	_ intercept.Observer             = (*Collector)(nil)
	_ intercept.ConfirmationObserver = (*Collector)(nil)
)

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a new registry
// is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine := intercept.New(intercept.WithObserver(collector))
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = append([]float64(nil), config.DefaultDurationBuckets...)
	}
	if cfg.MaxCardinality <= 0 {
		cfg.MaxCardinality = config.DefaultMetricsMaxCardinality
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(cfg.MaxCardinality),
	}

	c.invocationMetrics = NewInvocationMetrics(cfg, registry)
	c.policyMetrics = NewPolicyMetrics(cfg, registry)
	c.confirmationMetrics = NewConfirmationMetrics(cfg, registry)

	return c
}

// Observe implements intercept.Observer.
func (c *Collector) Observe(_ context.Context, out intercept.Outcome) {
	if !c.config.Enabled {
		return
	}

	owner, operation := c.labels(out.Owner, out.Operation)
	c.invocationMetrics.RecordInvocation(owner, operation, out.State.String(), out.Duration)

	if out.State == intercept.Denied {
		kind, _ := out.DeniedBy()
		c.invocationMetrics.RecordDenial(owner, operation, kind, intercept.CauseKind(out.Cause))
	}

	for _, s := range out.Steps {
		c.policyMetrics.RecordEvaluation(s.Kind, s.Verdict.String(), s.Duration)
	}
}

// ConfirmationStarted implements intercept.ConfirmationObserver.
func (c *Collector) ConfirmationStarted(owner, operation string) {
	if !c.config.Enabled {
		return
	}
	owner, operation = c.labels(owner, operation)
	c.confirmationMetrics.Started(owner, operation)
}

// ConfirmationFinished implements intercept.ConfirmationObserver.
func (c *Collector) ConfirmationFinished(owner, operation string, approved bool, err error, waited time.Duration) {
	if !c.config.Enabled {
		return
	}
	owner, operation = c.labels(owner, operation)

	answer := "declined"
	switch {
	case err != nil:
		answer = "failed"
	case approved:
		answer = "approved"
	}
	c.confirmationMetrics.Finished(owner, operation, answer, waited)
}

// labels maps an owner/operation pair to the labels actually recorded.
func (c *Collector) labels(owner, operation string) (string, string) {
	if !c.cardinalityLimiter.Allow(owner + "." + operation) {
		return "other", "other"
	}
	return owner, operation
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label combinations per metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet may be recorded: it is already known or
// the limit has not been reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
