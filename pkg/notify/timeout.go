package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrConfirmTimeout is returned when a confirmation is not answered in time.
var ErrConfirmTimeout = errors.New("notify: confirmation timed out")

type timeoutSink struct {
	Sink
	timeout time.Duration
}

// WithTimeout bounds every Confirm on s by d. A non-positive d returns s
// unchanged.
func WithTimeout(s Sink, d time.Duration) Sink {
	if d <= 0 {
		return s
	}
	return &timeoutSink{Sink: s, timeout: d}
}

func (t *timeoutSink) Confirm(ctx context.Context, msg string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	ok, err := t.Sink.Confirm(ctx, msg)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return false, fmt.Errorf("%w after %s", ErrConfirmTimeout, t.timeout)
	}
	return ok, err
}
