package trust

import (
	"context"
	"fmt"

	"mercator-hq/warden/pkg/policy"
)

// Kind is the policy kind name of trust gate steps.
const Kind = "trust_gate"

// DefaultPrompt is used when a step has no prompt template. %s is replaced
// with the resource reference.
const DefaultPrompt = "Load untrusted resource %s?"

// Step checks the resource reference found in one argument of a call.
type Step struct {
	gate   *Gate
	arg    int
	field  string
	prompt string
}

var (
	_ policy.Step      = (*Step)(nil)
	_ policy.Suspender = (*Step)(nil)
)

// NewStep checks argument arg with gate. When field is set and the argument
// is a map[string]any, the named entry holds the reference. prompt is a
// fmt template with one %s verb; empty means DefaultPrompt.
func NewStep(gate *Gate, arg int, field, prompt string) *Step {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &Step{gate: gate, arg: arg, field: field, prompt: prompt}
}

// Kind implements policy.Step.
func (s *Step) Kind() string {
	return Kind
}

// MaySuspend implements policy.Suspender.
func (s *Step) MaySuspend() bool {
	return true
}

// Gate returns the underlying gate.
func (s *Step) Gate() *Gate {
	return s.gate
}

// Evaluate implements policy.Step. A reference that is not a string is
// denied outright.
func (s *Step) Evaluate(_ context.Context, call *policy.Call) policy.Result {
	v, _ := call.Arg(s.arg)
	if s.field != "" {
		m, _ := v.(map[string]any)
		v = m[s.field]
	}

	ref, ok := v.(string)
	if !ok {
		return policy.Denied("resource reference in argument %d is %T, not a string", s.arg, v)
	}

	if s.gate.Evaluate(ref) == Trusted {
		return policy.Allowed()
	}

	return policy.Suspended(ref, fmt.Sprintf(s.prompt, ref), func(approved bool) {
		if approved {
			s.gate.Approve(ref)
		}
	})
}
