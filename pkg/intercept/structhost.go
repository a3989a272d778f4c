package intercept

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unicode"
	"unicode/utf8"
)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// StructHost adapts the func-typed fields of a struct to Host, so host code
// keeps calling its own typed functions while the engine sees Operations.
//
// A field qualifies when it is exported, non-variadic, and returns nothing,
// a value, an error, or a value and an error. A leading context.Context
// parameter receives the invocation context. Fields are looked up by Go name
// or by the same name with a lower-case first letter ("submitScore").
//
// Arguments passed through an Operation must match the declared parameter
// types. Numbers convert between numeric kinds only when no precision or
// sign is lost.
type StructHost struct {
	v reflect.Value

	mu        sync.Mutex
	originals map[string]reflect.Value
}

var (
	_ Host     = (*StructHost)(nil)
	_ Restorer = (*StructHost)(nil)
)

// NewStructHost wraps ptr, which must be a non-nil pointer to a struct.
func NewStructHost(ptr any) (*StructHost, error) {
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("struct host: want non-nil pointer to struct, got %T", ptr)
	}
	return &StructHost{
		v:         v.Elem(),
		originals: make(map[string]reflect.Value),
	}, nil
}

// Operations lists the names of all qualifying fields.
func (h *StructHost) Operations() []string {
	t := h.v.Type()
	var names []string
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.IsExported() && supported(sf.Type) == nil {
			names = append(names, sf.Name)
		}
	}
	return names
}

// Operation implements Host. The returned Operation calls the function the
// field holds now, even if the field is replaced later.
func (h *StructHost) Operation(name string) (Operation, bool) {
	f, _, ok := h.field(name)
	if !ok || f.IsNil() || supported(f.Type()) != nil {
		return nil, false
	}
	fn := reflect.ValueOf(f.Interface())
	return func(ctx context.Context, args ...any) (any, error) {
		return callFunc(ctx, name, fn, args)
	}, true
}

// SetOperation implements Host by storing a function of the field's own type
// that forwards to op.
func (h *StructHost) SetOperation(name string, op Operation) error {
	if op == nil {
		return errors.New("nil operation")
	}
	f, sf, ok := h.field(name)
	if !ok {
		return &TargetNotFoundError{Operation: name}
	}
	ft := f.Type()
	if err := supported(ft); err != nil {
		return fmt.Errorf("field %s: %w", sf.Name, err)
	}

	h.mu.Lock()
	if _, saved := h.originals[sf.Name]; !saved {
		h.originals[sf.Name] = reflect.ValueOf(f.Interface())
	}
	h.mu.Unlock()

	f.Set(reflect.MakeFunc(ft, func(in []reflect.Value) []reflect.Value {
		ctx := context.Background()
		start := 0
		if ft.NumIn() > 0 && ft.In(0) == contextType {
			if c, ok := in[0].Interface().(context.Context); ok && c != nil {
				ctx = c
			}
			start = 1
		}
		args := make([]any, 0, len(in)-start)
		for _, v := range in[start:] {
			args = append(args, v.Interface())
		}
		value, err := op(ctx, args...)
		return buildResults(ft, value, err)
	}))
	return nil
}

// Restore implements Restorer.
func (h *StructHost) Restore(name string) error {
	f, sf, ok := h.field(name)
	if !ok {
		return &TargetNotFoundError{Operation: name}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	orig, saved := h.originals[sf.Name]
	if !saved {
		return nil
	}
	f.Set(orig)
	delete(h.originals, sf.Name)
	return nil
}

func (h *StructHost) field(name string) (reflect.Value, reflect.StructField, bool) {
	t := h.v.Type()
	sf, ok := t.FieldByName(name)
	if !ok {
		r, size := utf8.DecodeRuneInString(name)
		if r == utf8.RuneError {
			return reflect.Value{}, reflect.StructField{}, false
		}
		sf, ok = t.FieldByName(string(unicode.ToUpper(r)) + name[size:])
	}
	if !ok || !sf.IsExported() || sf.Type.Kind() != reflect.Func || len(sf.Index) != 1 {
		return reflect.Value{}, reflect.StructField{}, false
	}
	return h.v.Field(sf.Index[0]), sf, true
}

func supported(ft reflect.Type) error {
	if ft.Kind() != reflect.Func {
		return errors.New("not a function")
	}
	if ft.IsVariadic() {
		return errors.New("variadic functions are not supported")
	}
	switch ft.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if ft.Out(1) != errorType {
			return errors.New("second result must be error")
		}
		return nil
	default:
		return fmt.Errorf("%d results, want at most 2", ft.NumOut())
	}
}

func callFunc(ctx context.Context, name string, fn reflect.Value, args []any) (any, error) {
	ft := fn.Type()
	start := 0
	in := make([]reflect.Value, 0, ft.NumIn())
	if ft.NumIn() > 0 && ft.In(0) == contextType {
		if ctx == nil {
			ctx = context.Background()
		}
		in = append(in, reflect.ValueOf(&ctx).Elem())
		start = 1
	}

	if want := ft.NumIn() - start; len(args) != want {
		return nil, &ArgumentError{
			Operation: name,
			Index:     -1,
			Message:   fmt.Sprintf("got %d arguments, want %d", len(args), want),
		}
	}
	for i, a := range args {
		v, err := convertArg(a, ft.In(start+i))
		if err != nil {
			return nil, &ArgumentError{Operation: name, Index: i, Message: err.Error()}
		}
		in = append(in, v)
	}

	return splitResults(ft, fn.Call(in))
}

func convertArg(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %s", t)
	}

	v := reflect.ValueOf(a)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumeric(v.Kind()) && isNumeric(t.Kind()) {
		if c, ok := convertNumber(v, t); ok {
			return c, nil
		}
		return reflect.Value{}, fmt.Errorf("%v (%s) does not fit %s", a, v.Type(), t)
	}
	if v.Kind() == t.Kind() && v.Type().ConvertibleTo(t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", v.Type(), t)
}

// convertNumber converts v to t when the round trip is exact.
func convertNumber(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	if isSigned(v.Kind()) && v.Int() < 0 && isUnsigned(t.Kind()) {
		return reflect.Value{}, false
	}
	if isFloat(v.Kind()) && v.Float() < 0 && isUnsigned(t.Kind()) {
		return reflect.Value{}, false
	}
	c := v.Convert(t)
	if !c.Convert(v.Type()).Equal(v) {
		return reflect.Value{}, false
	}
	return c, true
}

func splitResults(ft reflect.Type, out []reflect.Value) (any, error) {
	switch ft.NumOut() {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func buildResults(ft reflect.Type, value any, err error) []reflect.Value {
	out := make([]reflect.Value, ft.NumOut())
	for i := range out {
		rt := ft.Out(i)
		if rt == errorType && i == len(out)-1 {
			ev := reflect.New(errorType).Elem()
			if err != nil {
				ev.Set(reflect.ValueOf(err))
			}
			out[i] = ev
			continue
		}
		out[i] = resultValue(rt, value)
	}
	return out
}

// resultValue converts value to rt, falling back to the zero value.
func resultValue(rt reflect.Type, value any) reflect.Value {
	rv := reflect.New(rt).Elem()
	if value == nil {
		return rv
	}
	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(rt):
		rv.Set(v)
	case isNumeric(v.Kind()) && isNumeric(rt.Kind()):
		if c, ok := convertNumber(v, rt); ok {
			rv.Set(c)
		}
	}
	return rv
}

func isNumeric(k reflect.Kind) bool {
	return isSigned(k) || isUnsigned(k) || isFloat(k)
}

func isSigned(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	}
	return false
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}
