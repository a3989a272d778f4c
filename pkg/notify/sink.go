// Package notify delivers messages to the person operating the host and
// collects yes/no confirmations from them.
//
// The engine only depends on the Sink interface. Implementations:
//
//   - LogSink writes to a slog logger and answers confirmations with a fixed
//     default, for headless runs.
//   - Terminal prompts on an io.Writer and reads y/N answers from an
//     io.Reader.
//   - Static answers from a script or a fixed value and keeps every
//     message, for tests and simulations.
//
// WithTimeout bounds how long a confirmation may take.
package notify

import (
	"context"
	"errors"
)

// Sink is the presentation surface used by the interception engine.
type Sink interface {
	// Notify shows a message. It must not block for long and has no result.
	Notify(ctx context.Context, msg string)

	// Confirm asks a yes/no question and blocks until it is answered or ctx
	// is done. An error means no answer was obtained.
	Confirm(ctx context.Context, msg string) (bool, error)
}

// ErrNoAnswer is returned when the input closes before an answer arrives.
var ErrNoAnswer = errors.New("notify: no answer")

// Funcs adapts a pair of functions to Sink. Nil functions are no-ops that
// decline every confirmation.
type Funcs struct {
	NotifyFunc  func(ctx context.Context, msg string)
	ConfirmFunc func(ctx context.Context, msg string) (bool, error)
}

var _ Sink = Funcs{}

// Notify calls NotifyFunc.
func (f Funcs) Notify(ctx context.Context, msg string) {
	if f.NotifyFunc != nil {
		f.NotifyFunc(ctx, msg)
	}
}

// Confirm calls ConfirmFunc.
func (f Funcs) Confirm(ctx context.Context, msg string) (bool, error) {
	if f.ConfirmFunc == nil {
		return false, nil
	}
	return f.ConfirmFunc(ctx, msg)
}
