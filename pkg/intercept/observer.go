package intercept

import (
	"context"
	"time"
)

// Observer receives every finished invocation. Observe runs on the calling
// goroutine after the outcome is final, so implementations must be quick.
type Observer interface {
	Observe(ctx context.Context, out Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, out Outcome)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, out Outcome) {
	f(ctx, out)
}

// ConfirmationObserver is implemented by observers that track confirmations
// while they are outstanding.
type ConfirmationObserver interface {
	ConfirmationStarted(owner, operation string)
	ConfirmationFinished(owner, operation string, approved bool, err error, waited time.Duration)
}
