// Package metrics provides Prometheus metrics for Warden.
//
// # Overview
//
// A Collector is attached to the interception engine as an observer. It
// records every finished call and every confirmation without the engine
// knowing about Prometheus:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	engine := intercept.New(intercept.WithObserver(collector))
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Metrics
//
//   - warden_invocations_total{owner,operation,outcome}
//   - warden_invocation_duration_seconds{owner,operation}
//   - warden_denials_total{owner,operation,policy,cause}
//   - warden_policy_evaluations_total{policy,verdict}
//   - warden_policy_evaluation_duration_seconds{policy}
//   - warden_confirmations_pending{owner,operation}
//   - warden_confirmations_total{owner,operation,answer}
//   - warden_confirmation_wait_seconds{owner,operation}
//
// # Cardinality Management
//
// Owner and operation names come from the host. After MaxCardinality
// distinct pairs, further pairs are recorded with owner="other" and
// operation="other".
package metrics
