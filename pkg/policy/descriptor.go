package policy

import "fmt"

// ResultKind selects the value a wrapper returns when it suppresses a call.
type ResultKind string

const (
	// ResultAbsent returns the zero value (nil) for reporter-style operations.
	ResultAbsent ResultKind = "absent"

	// ResultFalse returns false for boolean operations.
	ResultFalse ResultKind = "false"
)

// Descriptor binds an ordered policy chain to one operation of one owner.
// Descriptors are built once at start-up and never modified afterwards.
type Descriptor struct {
	// Owner is the host object name.
	Owner string

	// Operation is the operation name on the owner.
	Operation string

	// Steps run in order; the first Deny wins.
	Steps []Step

	// Result selects the denial value. Empty means ResultAbsent.
	Result ResultKind
}

// Suspends reports whether any step may pause the call for confirmation.
// Calls through such operations can block the calling goroutine until the
// user answers.
func (d Descriptor) Suspends() bool {
	for _, s := range d.Steps {
		if sp, ok := s.(Suspender); ok && sp.MaySuspend() {
			return true
		}
	}
	return false
}

// DenialValue returns the value reported to the host for a suppressed call.
func (d Descriptor) DenialValue() any {
	if d.Result == ResultFalse {
		return false
	}
	return nil
}

// Kinds lists the step kinds in chain order.
func (d Descriptor) Kinds() []string {
	kinds := make([]string, len(d.Steps))
	for i, s := range d.Steps {
		kinds[i] = s.Kind()
	}
	return kinds
}

// String returns "owner.operation".
func (d Descriptor) String() string {
	return fmt.Sprintf("%s.%s", d.Owner, d.Operation)
}

// ParseResultKind converts a configuration value to a ResultKind.
func ParseResultKind(s string) (ResultKind, error) {
	switch s {
	case "", string(ResultAbsent), "undefined", "nil":
		return ResultAbsent, nil
	case string(ResultFalse), "bool", "boolean":
		return ResultFalse, nil
	default:
		return "", fmt.Errorf("unknown result kind %q", s)
	}
}
