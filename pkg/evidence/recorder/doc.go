// Package recorder writes one evidence.DecisionRecord per intercepted
// invocation.
//
// A Recorder is an intercept.Observer; attach it to the engine and every
// Outcome is converted and queued:
//
//	rec := recorder.New(store, recorder.ConfigFrom(cfg.Evidence.Recorder))
//	defer rec.Close()
//
//	engine := intercept.New(intercept.WithObserver(rec))
//
// # Queueing
//
// With a positive AsyncBuffer a single background goroutine drains the
// queue. Observe never waits for storage; when the queue is full the record
// is dropped, logged at Error and counted in Stats. Close drains whatever
// is queued before returning. With AsyncBuffer 0 every record is written on
// the goroutine that made the call.
//
// # Record content
//
// Call arguments are never stored. Resource references are stripped of
// credentials, query strings and fragments by RedactResource. Reason and
// Error are truncated to MaxFieldLength bytes. Every record carries a
// Digest; Verify recomputes it.
package recorder
