// Warden wraps sensitive operations of an untrusted host application with
// policy checks before they are allowed to run.
//
// It provides:
//   - Per-channel sliding rate limits
//   - Argument validation against declared constraints
//   - Trust checks on resource origins with user confirmation
//   - A queryable audit trail of every decision
//
// Usage:
//
//	# Replay a scenario against the demo host and print every decision
//	warden simulate scenarios/burst.yaml
//
//	# Wrap the demo host, serve health, metrics and decisions over HTTP
//	warden run --config warden.yaml
//
//	# Check a policy table, and keep checking it as it changes
//	warden validate --watch
//
//	# Show what would be wrapped
//	warden describe
//
//	# Query recorded decisions
//	warden evidence query --state denied
package main

func main() {
	Execute()
}
