// Package evidence defines the decision audit trail: one DecisionRecord per
// intercepted invocation, the Storage interface its backends implement, and
// the typed errors they return.
//
// # Records
//
// A record states which operation was called, whether it was forwarded or
// denied, which policy denied it and whether the user was asked. Call
// arguments are never stored. Each record carries a SHA-256 digest over its
// decision fields so tampering with a stored row can be detected:
//
//	{
//	    "id": "4b1f...",
//	    "invocation_id": "9c2e...",
//	    "owner": "cloud",
//	    "operation": "setVariable",
//	    "state": "denied",
//	    "policy": "rate_limit",
//	    "reason": "rate limit exceeded on channel \"cloud\" (10 calls per 1s)",
//	    "cause_kind": "policy",
//	    "asked": false,
//	    "started_at": "2025-11-20T10:30:00Z",
//	    "duration": 41000,
//	    "recorded_at": "2025-11-20T10:30:00Z",
//	    "digest": "e3b0..."
//	}
//
// # Subpackages
//
//   - storage: memory and SQLite backends
//   - recorder: an intercept.Observer that writes records asynchronously
//   - query: query validation and defaults
//   - export: JSON and CSV exporters
//   - retention: age and count based pruning on a cron schedule
//
// Records are write-only from the engine's point of view. Nothing read back
// from storage influences a later decision, so rate windows and trust
// approvals still start empty after a restart.
package evidence
