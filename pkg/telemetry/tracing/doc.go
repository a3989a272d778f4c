// Package tracing provides OpenTelemetry tracing for the interception engine.
//
// # Spans
//
// The engine opens one span per wrapped call, named "warden.<owner>.<operation>",
// and one child span per policy step. Attributes use the "warden.*"
// namespace:
//
//   - warden.invocation_id, warden.owner, warden.operation
//   - warden.policy.kind, warden.policy.verdict, warden.policy.reason
//   - warden.outcome, warden.confirmation.resource, warden.confirmation.approved
//
// # Export
//
// Spans are exported over OTLP/gRPC. Sampling is one of always, never or
// ratio and always respects the parent span's decision.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	engine := intercept.New(intercept.WithTracer(tracer.OTel()))
//
// When tracing is disabled New returns a tracer backed by the noop provider.
//
// # Propagation
//
// HTTPMiddleware extracts W3C trace context from incoming requests so that
// calls to the HTTP surface join the caller's trace.
package tracing
