// Package telemetry groups the observability components of Warden.
//
// # Components
//
//   - logging: slog construction with secret redaction and invocation context
//   - metrics: Prometheus collector fed by the engine's Observer hook
//   - tracing: OpenTelemetry tracer with an OTLP/gRPC exporter
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
//	logger, _ := logging.New(logging.FromConfig(&cfg.Telemetry.Logging, os.Stderr))
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing)
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	engine := intercept.New(
//		intercept.WithLogger(logger.Slog()),
//		intercept.WithTracer(tracer.OTel()),
//		intercept.WithObserver(collector),
//	)
//
// Denied calls are logged at Warn, forwarded calls at Debug. Resource
// references are redacted before they reach a log line or a span.
package telemetry
