// Package policy defines the contract between the interception engine and
// the checks it runs before forwarding an operation.
//
// # Steps
//
// A Step inspects one Call and returns a Result carrying a Verdict:
//
//   - Allow: continue with the next step
//   - Deny: suppress the call with a reason
//   - Suspend: wait for an external yes/no answer, then continue or deny
//
// Concrete steps live in subpackages:
//
//   - ratelimit: fixed window call counting per channel
//   - validate: stateless argument constraints
//   - trust: allow-list check on resource references with user confirmation
//
// # Descriptors
//
// A Descriptor names the owner and operation a chain protects, the ordered
// steps, and which value a suppressed call returns. Descriptors report via
// Suspends whether calls may block on confirmation.
//
// The loader subpackage builds descriptors from the YAML policy table.
package policy
