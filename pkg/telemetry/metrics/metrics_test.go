package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/intercept"
	"mercator-hq/warden/pkg/policy"
)

// Helper function to create test config
func testConfig() *config.MetricsConfig {
	return &config.MetricsConfig{
		Enabled:         true,
		Namespace:       "test",
		DurationBuckets: []float64{0.001, 0.01, 0.1, 1},
		MaxCardinality:  100,
	}
}

func deniedOutcome(owner, operation string) intercept.Outcome {
	return intercept.Outcome{
		Owner:     owner,
		Operation: operation,
		State:     intercept.Denied,
		Cause:     &intercept.PolicyDenial{Policy: "validate", Reason: "out of range"},
		Steps: []intercept.StepTrace{
			{Kind: "validate", Verdict: policy.Deny, Duration: 2 * time.Microsecond},
		},
		Duration: time.Millisecond,
	}
}

// ============================================================================
// Collector
// ============================================================================

func TestCollector_NewCollector(t *testing.T) {
	cfg := testConfig()
	registry := prometheus.NewRegistry()

	collector := NewCollector(cfg, registry)

	if collector.Registry() != registry {
		t.Error("Collector registry not set correctly")
	}

	defaulted := NewCollector(&config.MetricsConfig{}, nil)
	if defaulted.config.Namespace != config.DefaultMetricsNamespace {
		t.Errorf("namespace = %q, want default", defaulted.config.Namespace)
	}
	if defaulted.Registry() == nil {
		t.Error("expected a registry to be created")
	}
}

func TestCollector_Observe(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	ctx := context.Background()

	collector.Observe(ctx, deniedOutcome("leaderboard", "submitScore"))
	collector.Observe(ctx, intercept.Outcome{
		Owner:     "leaderboard",
		Operation: "submitScore",
		State:     intercept.Forwarded,
		Steps: []intercept.StepTrace{
			{Kind: "validate", Verdict: policy.Allow},
		},
	})
	collector.Observe(ctx, intercept.Outcome{
		Owner:         "runtime",
		Operation:     "loadExtension",
		State:         intercept.Denied,
		Cause:         &intercept.UserCancelledError{Resource: "https://evil.example/ext.js"},
		Confirmations: []intercept.Confirmation{{Policy: "trust_gate"}},
	})

	im := collector.invocationMetrics
	if got := testutil.ToFloat64(im.invocationsTotal.WithLabelValues("leaderboard", "submitScore", "denied")); got != 1 {
		t.Errorf("denied invocations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(im.invocationsTotal.WithLabelValues("leaderboard", "submitScore", "forwarded")); got != 1 {
		t.Errorf("forwarded invocations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(im.denialsTotal.WithLabelValues("leaderboard", "submitScore", "validate", "policy")); got != 1 {
		t.Errorf("policy denials = %v, want 1", got)
	}
	if got := testutil.ToFloat64(im.denialsTotal.WithLabelValues("runtime", "loadExtension", "trust_gate", "user_cancelled")); got != 1 {
		t.Errorf("user cancellations = %v, want 1", got)
	}

	pm := collector.policyMetrics
	if got := testutil.ToFloat64(pm.evaluationsTotal.WithLabelValues("validate", "deny")); got != 1 {
		t.Errorf("validate deny evaluations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pm.evaluationsTotal.WithLabelValues("validate", "allow")); got != 1 {
		t.Errorf("validate allow evaluations = %v, want 1", got)
	}
}

func TestCollector_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	collector := NewCollector(cfg, prometheus.NewRegistry())

	collector.Observe(context.Background(), deniedOutcome("leaderboard", "submitScore"))
	collector.ConfirmationStarted("runtime", "loadExtension")

	if got := testutil.CollectAndCount(collector.invocationMetrics.invocationsTotal); got != 0 {
		t.Errorf("collected %d series while disabled, want 0", got)
	}
	if got := testutil.CollectAndCount(collector.confirmationMetrics.pending); got != 0 {
		t.Errorf("collected %d pending series while disabled, want 0", got)
	}
}

func TestCollector_Confirmations(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	cm := collector.confirmationMetrics

	collector.ConfirmationStarted("runtime", "loadExtension")
	collector.ConfirmationStarted("runtime", "loadExtension")
	if got := testutil.ToFloat64(cm.pending.WithLabelValues("runtime", "loadExtension")); got != 2 {
		t.Errorf("pending = %v, want 2", got)
	}

	collector.ConfirmationFinished("runtime", "loadExtension", true, nil, time.Second)
	collector.ConfirmationFinished("runtime", "loadExtension", false, errors.New("timeout"), 2*time.Second)

	if got := testutil.ToFloat64(cm.pending.WithLabelValues("runtime", "loadExtension")); got != 0 {
		t.Errorf("pending = %v, want 0", got)
	}
	if got := testutil.ToFloat64(cm.total.WithLabelValues("runtime", "loadExtension", "approved")); got != 1 {
		t.Errorf("approved = %v, want 1", got)
	}
	if got := testutil.ToFloat64(cm.total.WithLabelValues("runtime", "loadExtension", "failed")); got != 1 {
		t.Errorf("failed = %v, want 1", got)
	}
}

func TestCollector_CardinalityLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCardinality = 1
	collector := NewCollector(cfg, prometheus.NewRegistry())
	ctx := context.Background()

	collector.Observe(ctx, deniedOutcome("leaderboard", "submitScore"))
	collector.Observe(ctx, deniedOutcome("cloud", "setVariable"))

	im := collector.invocationMetrics
	if got := testutil.ToFloat64(im.invocationsTotal.WithLabelValues("other", "other", "denied")); got != 1 {
		t.Errorf("other invocations = %v, want 1", got)
	}
	if collector.cardinalityLimiter.Count() != 1 {
		t.Errorf("cardinality = %d, want 1", collector.cardinalityLimiter.Count())
	}
}

func TestCollector_WithEngine(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())

	host := intercept.NewTable().Define("submitScore", func(context.Context, ...any) (any, error) {
		return nil, nil
	})
	engine := intercept.New(intercept.WithObserver(collector))
	d := policy.Descriptor{
		Owner:     "leaderboard",
		Operation: "submitScore",
		Steps: []policy.Step{policy.StepFunc{Name: "deny_all", Fn: func(context.Context, *policy.Call) policy.Result {
			return policy.Denied("closed")
		}}},
	}
	if err := engine.Install(host, d); err != nil {
		t.Fatal(err)
	}

	host.Call(context.Background(), "submitScore", 1)

	if got := testutil.ToFloat64(collector.invocationMetrics.denialsTotal.WithLabelValues("leaderboard", "submitScore", "deny_all", "policy")); got != 1 {
		t.Errorf("denials = %v, want 1", got)
	}
}

// ============================================================================
// Handler
// ============================================================================

func TestCollector_Handler(t *testing.T) {
	collector := NewCollector(testConfig(), prometheus.NewRegistry())
	collector.Observe(context.Background(), deniedOutcome("leaderboard", "submitScore"))

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "test_invocations_total") {
		t.Errorf("body does not contain invocations metric:\n%s", body)
	}
}

// ============================================================================
// CardinalityLimiter
// ============================================================================

func TestCardinalityLimiter(t *testing.T) {
	cl := NewCardinalityLimiter(2)

	if !cl.Allow("a") || !cl.Allow("b") {
		t.Fatal("first two label sets should be allowed")
	}
	if cl.Allow("c") {
		t.Error("third label set should be rejected")
	}
	if !cl.Allow("a") {
		t.Error("known label set should stay allowed")
	}
	if cl.Count() != 2 {
		t.Errorf("Count() = %d, want 2", cl.Count())
	}
}
