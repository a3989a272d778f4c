package policy

import (
	"context"
	"fmt"
	"time"
)

// Verdict is the outcome of evaluating a single policy step.
type Verdict int

const (
	// Allow lets evaluation continue with the next step.
	Allow Verdict = iota

	// Deny stops evaluation. The original operation is not called.
	Deny

	// Suspend pauses evaluation until an external yes/no answer arrives.
	Suspend
)

// String returns the lowercase name of the verdict.
func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Suspend:
		return "suspend"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Call describes one invocation of a wrapped operation as seen by the
// policy chain. Steps must treat Args as read-only.
type Call struct {
	// ID uniquely identifies the invocation.
	ID string

	// Owner is the name of the host object that owns the operation.
	Owner string

	// Operation is the wrapped operation name.
	Operation string

	// Args are the arguments exactly as the host passed them.
	Args []any

	// Time is the moment the invocation entered the engine.
	Time time.Time
}

// Arg returns the i-th argument. The second result is false when the call
// has fewer than i+1 arguments.
func (c *Call) Arg(i int) (any, bool) {
	if i < 0 || i >= len(c.Args) {
		return nil, false
	}
	return c.Args[i], true
}

// Result is what a Step returns for one call.
type Result struct {
	Verdict Verdict

	// Reason explains a Deny or a Suspend.
	Reason string

	// Resource is the reference a Suspend asks the user about.
	Resource string

	// Prompt is the question shown to the user on Suspend.
	Prompt string

	// OnAnswer, if set, receives the user's answer to a Suspend.
	OnAnswer func(approved bool)
}

// Allowed returns an Allow result.
func Allowed() Result {
	return Result{Verdict: Allow}
}

// Denied returns a Deny result with the given reason.
func Denied(format string, args ...any) Result {
	return Result{Verdict: Deny, Reason: fmt.Sprintf(format, args...)}
}

// Suspended returns a Suspend result asking the user about resource.
func Suspended(resource, prompt string, onAnswer func(bool)) Result {
	return Result{
		Verdict:  Suspend,
		Reason:   "confirmation required",
		Resource: resource,
		Prompt:   prompt,
		OnAnswer: onAnswer,
	}
}

// Step is one check in a policy chain.
type Step interface {
	// Kind names the policy type, e.g. "rate_limit".
	Kind() string

	// Evaluate decides on a single call. It must not block except where
	// the step is documented to do so, and must not retain call.Args.
	Evaluate(ctx context.Context, call *Call) Result
}

// Suspender is implemented by steps that can return Suspend. Descriptors
// use it to report which operations may block on user confirmation.
type Suspender interface {
	MaySuspend() bool
}

// StepFunc adapts a function to the Step interface.
type StepFunc struct {
	Name string
	Fn   func(ctx context.Context, call *Call) Result
}

// Kind returns the configured name.
func (s StepFunc) Kind() string {
	return s.Name
}

// Evaluate calls Fn.
func (s StepFunc) Evaluate(ctx context.Context, call *Call) Result {
	return s.Fn(ctx, call)
}
