package intercept

import (
	"fmt"
	"time"

	"mercator-hq/warden/pkg/policy"
)

// State is the lifecycle position of one invocation.
type State int

const (
	// Pending means the invocation has not started evaluating.
	Pending State = iota

	// Evaluating means policy steps are running or awaiting confirmation.
	Evaluating

	// Forwarded means every step allowed and the original was called.
	Forwarded

	// Denied means a step denied the call or the user declined it.
	Denied
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Evaluating:
		return "evaluating"
	case Forwarded:
		return "forwarded"
	case Denied:
		return "denied"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StepTrace records one evaluated step.
type StepTrace struct {
	Kind     string
	Verdict  policy.Verdict
	Reason   string
	Duration time.Duration
}

// Confirmation records one question put to the user.
type Confirmation struct {
	Policy   string
	Resource string
	Prompt   string
	Approved bool

	// Err is set when no answer was obtained.
	Err error

	Waited time.Duration
}

// Outcome is the complete record of one invocation.
type Outcome struct {
	ID        string
	Owner     string
	Operation string
	State     State

	// Value is what the host receives: the original's result when
	// forwarded, the descriptor's denial value when denied.
	Value any

	// Err is the original's error when forwarded, or the reason the call
	// could not be attempted at all (e.g. ErrNotInstalled).
	Err error

	// Cause is the denial cause: *PolicyDenial or *UserCancelledError.
	Cause error

	Steps         []StepTrace
	Confirmations []Confirmation

	Started  time.Time
	Duration time.Duration
}

// Forwarded reports whether the original operation was called.
func (o Outcome) Forwarded() bool {
	return o.State == Forwarded
}

// Denied reports whether the call was suppressed.
func (o Outcome) Denied() bool {
	return o.State == Denied
}

// DeniedBy returns the policy kind and reason of a denial. Both are empty
// when the call was not denied.
func (o Outcome) DeniedBy() (kind, reason string) {
	switch c := o.Cause.(type) {
	case *PolicyDenial:
		return c.Policy, c.Reason
	case *UserCancelledError:
		if n := len(o.Confirmations); n > 0 {
			kind = o.Confirmations[n-1].Policy
		}
		return kind, c.Error()
	}
	return "", ""
}
