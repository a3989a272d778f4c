package intercept

import (
	"errors"
	"fmt"
)

// ErrNotInstalled is returned for operations that have no binding.
var ErrNotInstalled = errors.New("operation not installed")

// TargetNotFoundError reports that the host has no operation with the
// requested name.
type TargetNotFoundError struct {
	Owner     string
	Operation string
}

// Error implements the error interface.
func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("operation %s.%s not found on host", e.Owner, e.Operation)
}

// AlreadyInstalledError reports a second Install for the same operation.
type AlreadyInstalledError struct {
	Owner     string
	Operation string
}

// Error implements the error interface.
func (e *AlreadyInstalledError) Error() string {
	return fmt.Sprintf("operation %s.%s is already wrapped", e.Owner, e.Operation)
}

// SetupError wraps any failure to install a binding.
type SetupError struct {
	Owner     string
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *SetupError) Error() string {
	return fmt.Sprintf("install %s.%s: %v", e.Owner, e.Operation, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *SetupError) Unwrap() error {
	return e.Err
}

// PolicyDenial is the cause of a call suppressed by a policy step.
type PolicyDenial struct {
	// Policy is the kind of the step that denied the call.
	Policy string

	// Reason is the step's explanation.
	Reason string
}

// Error implements the error interface.
func (e *PolicyDenial) Error() string {
	return fmt.Sprintf("denied by %s: %s", e.Policy, e.Reason)
}

// UserCancelledError is the cause of a call the user declined to confirm.
type UserCancelledError struct {
	Resource string
}

// Error implements the error interface.
func (e *UserCancelledError) Error() string {
	return fmt.Sprintf("user declined %s", e.Resource)
}

// ArgumentError reports host arguments that do not fit an operation's
// parameters.
type ArgumentError struct {
	Operation string
	Index     int
	Message   string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: argument %d: %s", e.Operation, e.Index, e.Message)
}

// CauseKind classifies a denial cause for logs, metrics and evidence:
// "policy", "user_cancelled", "error" or "" for nil.
func CauseKind(err error) string {
	var pd *PolicyDenial
	var uc *UserCancelledError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &uc):
		return "user_cancelled"
	case errors.As(err, &pd):
		return "policy"
	default:
		return "error"
	}
}
