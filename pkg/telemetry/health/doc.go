// Package health serves liveness and readiness probes for the Warden HTTP
// surface.
//
// Components register a CheckFunc under a name; the server registers one
// for the evidence store and one for the engine's bindings:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("evidence", store.Ping)
//	health.Mount(mux, checker, version, commit, buildTime)
//
// /health never runs checks. /ready runs them concurrently, each bounded by
// the checker timeout, and answers 503 when any of them fails.
package health
