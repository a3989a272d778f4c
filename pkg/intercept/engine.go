package intercept

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"mercator-hq/warden/pkg/notify"
	"mercator-hq/warden/pkg/policy"
)

type bindingKey struct {
	owner     string
	operation string
}

// Binding is one installed wrapper. It never changes after Install.
type Binding struct {
	descriptor  policy.Descriptor
	host        Host
	original    Operation
	wrapper     Operation
	installedAt time.Time
}

// Descriptor returns the policy chain of the binding.
func (b *Binding) Descriptor() policy.Descriptor {
	return b.descriptor
}

// BindingInfo is a read-only summary of a binding.
type BindingInfo struct {
	Owner       string    `json:"owner"`
	Operation   string    `json:"operation"`
	Policies    []string  `json:"policies"`
	Result      string    `json:"result"`
	Suspends    bool      `json:"suspends"`
	InstalledAt time.Time `json:"installed_at"`
}

func (b *Binding) info() BindingInfo {
	result := b.descriptor.Result
	if result == "" {
		result = policy.ResultAbsent
	}
	return BindingInfo{
		Owner:       b.descriptor.Owner,
		Operation:   b.descriptor.Operation,
		Policies:    b.descriptor.Kinds(),
		Result:      string(result),
		Suspends:    b.descriptor.Suspends(),
		InstalledAt: b.installedAt,
	}
}

// Engine installs policy-enforcing wrappers over host operations.
//
// The binding table is guarded by an RWMutex that is never held while a
// policy step, a confirmation, or an original operation runs. An Engine is
// safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	bindings map[bindingKey]*Binding

	sink         notify.Sink
	logger       *slog.Logger
	tracer       trace.Tracer
	observers    []Observer
	now          func() time.Time
	newID        func() string
	duplicates   DuplicatePolicy
	denialErrors bool
}

// New creates an engine with no bindings.
func New(opts ...Option) *Engine {
	e := &Engine{
		bindings: make(map[bindingKey]*Binding),
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.sink == nil {
		e.sink = notify.NewLogSink(e.logger, false)
	}
	e.logger = e.logger.With("component", "intercept")
	return e
}

// Install replaces d.Operation on host with a wrapper enforcing d.Steps.
//
// It returns a *SetupError wrapping *TargetNotFoundError when the host has
// no such operation, and *AlreadyInstalledError for a second Install of the
// same owner and operation unless the engine ignores duplicates. A failed
// Install leaves the host untouched.
func (e *Engine) Install(host Host, d policy.Descriptor) error {
	setupErr := func(err error) error {
		return &SetupError{Owner: d.Owner, Operation: d.Operation, Err: err}
	}

	if host == nil {
		return setupErr(&TargetNotFoundError{Owner: d.Owner, Operation: d.Operation})
	}

	k := bindingKey{d.Owner, d.Operation}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.bindings[k]; exists {
		if e.duplicates == DuplicateIgnore {
			e.logger.Debug("operation already wrapped, ignoring", "owner", d.Owner, "operation", d.Operation)
			return nil
		}
		return setupErr(&AlreadyInstalledError{Owner: d.Owner, Operation: d.Operation})
	}

	original, ok := host.Operation(d.Operation)
	if !ok || original == nil {
		return setupErr(&TargetNotFoundError{Owner: d.Owner, Operation: d.Operation})
	}

	b := &Binding{
		descriptor:  d,
		host:        host,
		original:    original,
		installedAt: e.now(),
	}
	b.wrapper = e.wrap(b)

	if err := host.SetOperation(d.Operation, b.wrapper); err != nil {
		return setupErr(err)
	}
	e.bindings[k] = b

	e.logger.Info("operation wrapped",
		"owner", d.Owner,
		"operation", d.Operation,
		"policies", d.Kinds(),
		"suspends", d.Suspends(),
	)
	return nil
}

// InstallAll installs every descriptor on the host registered under its
// owner name. Failures are logged and skipped; the joined errors are
// returned.
func (e *Engine) InstallAll(hosts map[string]Host, descriptors []policy.Descriptor) error {
	var errs []error
	for _, d := range descriptors {
		if err := e.Install(hosts[d.Owner], d); err != nil {
			e.logger.Error("failed to wrap operation",
				"owner", d.Owner,
				"operation", d.Operation,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Uninstall restores the original implementation of owner.operation.
func (e *Engine) Uninstall(owner, operation string) error {
	k := bindingKey{owner, operation}

	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.bindings[k]
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrNotInstalled, owner, operation)
	}

	var err error
	if r, ok := b.host.(Restorer); ok {
		err = r.Restore(operation)
	} else {
		err = b.host.SetOperation(operation, b.original)
	}
	if err != nil {
		return fmt.Errorf("restore %s.%s: %w", owner, operation, err)
	}

	delete(e.bindings, k)
	e.logger.Info("operation restored", "owner", owner, "operation", operation)
	return nil
}

// UninstallAll restores every wrapped operation.
func (e *Engine) UninstallAll() error {
	var errs []error
	for _, info := range e.Bindings() {
		if err := e.Uninstall(info.Owner, info.Operation); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Binding returns the binding of owner.operation.
func (e *Engine) Binding(owner, operation string) (*Binding, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bindings[bindingKey{owner, operation}]
	return b, ok
}

// Bindings summarises all bindings, sorted by owner and operation.
func (e *Engine) Bindings() []BindingInfo {
	e.mu.RLock()
	infos := make([]BindingInfo, 0, len(e.bindings))
	for _, b := range e.bindings {
		infos = append(infos, b.info())
	}
	e.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Owner != infos[j].Owner {
			return infos[i].Owner < infos[j].Owner
		}
		return infos[i].Operation < infos[j].Operation
	})
	return infos
}

// Invoke runs owner.operation through its policy chain, exactly as a host
// call through the wrapper would, and returns the full outcome.
func (e *Engine) Invoke(ctx context.Context, owner, operation string, args ...any) Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	b, ok := e.Binding(owner, operation)
	if !ok {
		return Outcome{
			ID:        e.newID(),
			Owner:     owner,
			Operation: operation,
			State:     Pending,
			Err:       fmt.Errorf("%w: %s.%s", ErrNotInstalled, owner, operation),
			Started:   e.now(),
		}
	}
	return e.run(ctx, b, args)
}

// Go runs Invoke on a new goroutine. The future resolves to what the host
// would receive from the wrapper.
func (e *Engine) Go(ctx context.Context, owner, operation string, args ...any) *Future {
	f := NewFuture()
	go func() {
		out := e.Invoke(ctx, owner, operation, args...)
		f.Resolve(e.hostResult(out))
	}()
	return f
}

func (e *Engine) wrap(b *Binding) Operation {
	return func(ctx context.Context, args ...any) (any, error) {
		if ctx == nil {
			ctx = context.Background()
		}
		return e.hostResult(e.run(ctx, b, args))
	}
}

// hostResult is the (value, error) pair a wrapper returns for out.
func (e *Engine) hostResult(out Outcome) (any, error) {
	switch {
	case out.State == Forwarded:
		return out.Value, out.Err
	case out.State == Denied && e.denialErrors:
		return out.Value, out.Cause
	case out.State == Denied:
		return out.Value, nil
	default:
		return out.Value, out.Err
	}
}
