package intercept

import (
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/warden/pkg/notify"
)

// DuplicatePolicy decides what a second Install of the same operation does.
type DuplicatePolicy int

const (
	// DuplicateError rejects the second Install with AlreadyInstalledError.
	DuplicateError DuplicatePolicy = iota

	// DuplicateIgnore keeps the first binding and returns nil.
	DuplicateIgnore
)

// ParseDuplicatePolicy converts a configuration value.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch s {
	case "", "error":
		return DuplicateError, nil
	case "ignore":
		return DuplicateIgnore, nil
	default:
		return DuplicateError, fmt.Errorf("unknown duplicate policy %q", s)
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithSink sets the notification sink. The default logs notifications and
// declines every confirmation.
func WithSink(s notify.Sink) Option {
	return func(e *Engine) {
		if s != nil {
			e.sink = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for invocation and step spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithObserver adds an observer. Observers run in the order added.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator sets the invocation ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// WithDuplicatePolicy sets the behaviour of repeated Install calls.
func WithDuplicatePolicy(p DuplicatePolicy) Option {
	return func(e *Engine) {
		e.duplicates = p
	}
}

// WithDenialErrors makes wrappers return the denial cause as their error.
// By default a suppressed call returns the denial value and a nil error.
func WithDenialErrors() Option {
	return func(e *Engine) {
		e.denialErrors = true
	}
}
