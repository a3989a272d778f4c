// Package server provides the Warden HTTP surface.
//
// # Routes
//
//	GET /health               liveness, always 200
//	GET /ready                readiness: evidence storage and installed bindings
//	GET /version              build information
//	GET /metrics              Prometheus exposition
//	GET /v1/bindings          installed operation bindings
//	GET /v1/decisions         decision records (see query.FromValues)
//	GET /v1/extension         registered extension descriptors
//	GET /v1/extension/{id}    one extension descriptor
//
// Routes whose dependency is nil in Deps are not registered. Nothing here
// mutates the engine: bindings, trust approvals and rate windows are only
// reachable from the host process.
//
// # Middleware
//
// Requests pass through tracing (a server span per request, W3C context
// extracted from headers), panic recovery and request logging, outermost
// first.
//
// # Usage
//
//	srv := server.New(&cfg.Server, server.Deps{
//	    Engine:     engine,
//	    Evidence:   store,
//	    Limits:     query.LimitsFrom(cfg.Evidence.Query),
//	    Extensions: registry,
//	    Metrics:    collector.Handler(),
//	    Tracer:     tracer.OTel(),
//	})
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//
// Start blocks until ctx is cancelled and then shuts down within
// ShutdownTimeout.
package server
