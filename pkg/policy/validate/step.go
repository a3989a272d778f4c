package validate

import (
	"context"

	"mercator-hq/warden/pkg/policy"
)

// Kind is the policy kind name of validation steps.
const Kind = "validate"

// Step validates one argument of a call.
type Step struct {
	arg         int
	field       string
	constraints []Constraint
}

var _ policy.Step = (*Step)(nil)

// NewStep validates argument arg. When field is set and the argument is a
// map[string]any, the named entry is validated instead. A missing argument
// or entry is validated as nil.
func NewStep(arg int, field string, constraints ...Constraint) *Step {
	return &Step{arg: arg, field: field, constraints: constraints}
}

// Kind implements policy.Step.
func (s *Step) Kind() string {
	return Kind
}

// Evaluate implements policy.Step.
func (s *Step) Evaluate(_ context.Context, call *policy.Call) policy.Result {
	v, _ := call.Arg(s.arg)
	target := "argument"
	if s.field != "" {
		target = "field " + s.field + " of argument"
		if m, ok := v.(map[string]any); ok {
			v = m[s.field]
		} else {
			v = nil
		}
	}

	if !Validate(v, s.constraints...) {
		return policy.Denied("%s %d failed validation: want %s", target, s.arg, Describe(s.constraints))
	}
	return policy.Allowed()
}
