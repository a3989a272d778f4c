package loader

import "fmt"

// BuildError reports a policy table entry that could not be turned into a
// descriptor.
type BuildError struct {
	// Index is the position in the operations list.
	Index int

	Owner     string
	Operation string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return fmt.Sprintf("operations[%d] %s.%s: %v", e.Index, e.Owner, e.Operation, e.Cause)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *BuildError) Unwrap() error {
	return e.Cause
}
