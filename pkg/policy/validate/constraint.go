package validate

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"unicode/utf8"
)

// Constraint is a single check on a value.
type Constraint interface {
	// Describe returns a short human readable form, e.g. "number in [0, 1e+06]".
	Describe() string

	// Check reports whether v satisfies the constraint.
	Check(v any) bool
}

// Type names accepted by TypeOf.
const (
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeString  = "string"
	TypeBool    = "bool"
)

type rangeConstraint struct {
	lo, hi float64
}

// Range requires a number v with lo <= v <= hi.
func Range(lo, hi float64) Constraint {
	return rangeConstraint{lo: lo, hi: hi}
}

// Min requires a number v >= lo.
func Min(lo float64) Constraint {
	return rangeConstraint{lo: lo, hi: math.Inf(1)}
}

// Max requires a number v <= hi.
func Max(hi float64) Constraint {
	return rangeConstraint{lo: math.Inf(-1), hi: hi}
}

func (c rangeConstraint) Describe() string {
	return fmt.Sprintf("number in [%g, %g]", c.lo, c.hi)
}

func (c rangeConstraint) Check(v any) bool {
	f, ok := Number(v)
	if !ok {
		return false
	}
	return f >= c.lo && f <= c.hi
}

type typeConstraint struct {
	name string
}

// TypeOf requires the value to be of the named type. Unknown names never
// match.
func TypeOf(name string) Constraint {
	return typeConstraint{name: name}
}

func (c typeConstraint) Describe() string {
	return "type " + c.name
}

func (c typeConstraint) Check(v any) bool {
	switch c.name {
	case TypeNumber:
		_, ok := Number(v)
		return ok
	case TypeInteger:
		f, ok := Number(v)
		return ok && f == math.Trunc(f) && !math.IsInf(f, 0)
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	default:
		return false
	}
}

type enumConstraint struct {
	values []any
}

// OneOf requires the value to equal one of values. Numbers compare by value
// regardless of their Go type.
func OneOf(values ...any) Constraint {
	return enumConstraint{values: values}
}

func (c enumConstraint) Describe() string {
	return fmt.Sprintf("one of %v", c.values)
}

func (c enumConstraint) Check(v any) bool {
	vf, vNum := Number(v)
	for _, candidate := range c.values {
		if cf, ok := Number(candidate); ok && vNum {
			if cf == vf {
				return true
			}
			continue
		}
		if reflect.DeepEqual(candidate, v) {
			return true
		}
	}
	return false
}

type patternConstraint struct {
	re *regexp.Regexp
}

// Pattern requires a string matching re.
func Pattern(re *regexp.Regexp) Constraint {
	return patternConstraint{re: re}
}

func (c patternConstraint) Describe() string {
	return fmt.Sprintf("string matching %q", c.re.String())
}

func (c patternConstraint) Check(v any) bool {
	s, ok := v.(string)
	return ok && c.re != nil && c.re.MatchString(s)
}

type lengthConstraint struct {
	lo, hi int
}

// Length requires a string whose rune count is within [lo, hi]. A negative
// hi means no upper bound.
func Length(lo, hi int) Constraint {
	return lengthConstraint{lo: lo, hi: hi}
}

func (c lengthConstraint) Describe() string {
	if c.hi < 0 {
		return fmt.Sprintf("string of length >= %d", c.lo)
	}
	return fmt.Sprintf("string of length in [%d, %d]", c.lo, c.hi)
}

func (c lengthConstraint) Check(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	n := utf8.RuneCountInString(s)
	return n >= c.lo && (c.hi < 0 || n <= c.hi)
}

// Number converts Go numeric kinds to float64. NaN is rejected. Strings,
// booleans, nil and every other type report false.
func Number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case float32:
		f = float64(n)
	case float64:
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
