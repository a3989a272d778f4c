package intercept

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// Operation is the uniform shape of a host operation as seen by the engine.
// Hosts with typed signatures are adapted by StructHost.
type Operation func(ctx context.Context, args ...any) (any, error)

// Host exposes named operations that can be replaced in place.
type Host interface {
	// Operation returns the current implementation of name.
	Operation(name string) (Operation, bool)

	// SetOperation replaces the implementation of name.
	SetOperation(name string, op Operation) error
}

// Restorer is implemented by hosts that can put back the exact original
// implementation of an operation. Uninstall prefers it over SetOperation.
type Restorer interface {
	Restore(name string) error
}

// Table is a map backed Host. It is safe for concurrent use.
type Table struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

var _ Host = (*Table)(nil)

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{ops: make(map[string]Operation)}
}

// Define adds or replaces an operation and returns t.
func (t *Table) Define(name string, op Operation) *Table {
	t.mu.Lock()
	t.ops[name] = op
	t.mu.Unlock()
	return t
}

// Operation implements Host.
func (t *Table) Operation(name string) (Operation, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	op, ok := t.ops[name]
	return op, ok && op != nil
}

// SetOperation implements Host. Only existing names can be replaced.
func (t *Table) SetOperation(name string, op Operation) error {
	if op == nil {
		return errors.New("nil operation")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.ops[name]; !ok {
		return &TargetNotFoundError{Operation: name}
	}
	t.ops[name] = op
	return nil
}

// Call invokes the current implementation of name, the way host code does.
func (t *Table) Call(ctx context.Context, name string, args ...any) (any, error) {
	op, ok := t.Operation(name)
	if !ok {
		return nil, &TargetNotFoundError{Operation: name}
	}
	return op(ctx, args...)
}

// Names returns the defined operation names in sorted order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.ops))
	for name := range t.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
