package validate

import (
	"fmt"
	"regexp"
)

// Spec is the declarative form of a constraint set as written in the policy
// table. Every non-empty field adds one constraint.
type Spec struct {
	Type      string
	Min       *float64
	Max       *float64
	Enum      []any
	Pattern   string
	MinLength *int
	MaxLength *int
}

// Parse builds the constraints described by spec.
//
// Min or Max imply a numeric value. MinLength, MaxLength and Pattern imply
// a string.
func Parse(spec Spec) ([]Constraint, error) {
	var out []Constraint

	if spec.Type != "" {
		switch spec.Type {
		case TypeNumber, TypeInteger, TypeString, TypeBool:
			out = append(out, TypeOf(spec.Type))
		default:
			return nil, fmt.Errorf("unknown type %q", spec.Type)
		}
	}

	switch {
	case spec.Min != nil && spec.Max != nil:
		if *spec.Min > *spec.Max {
			return nil, fmt.Errorf("min %g is greater than max %g", *spec.Min, *spec.Max)
		}
		out = append(out, Range(*spec.Min, *spec.Max))
	case spec.Min != nil:
		out = append(out, Min(*spec.Min))
	case spec.Max != nil:
		out = append(out, Max(*spec.Max))
	}

	if len(spec.Enum) > 0 {
		out = append(out, OneOf(spec.Enum...))
	}

	if spec.Pattern != "" {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		out = append(out, Pattern(re))
	}

	if spec.MinLength != nil || spec.MaxLength != nil {
		lo, hi := 0, -1
		if spec.MinLength != nil {
			lo = *spec.MinLength
		}
		if spec.MaxLength != nil {
			hi = *spec.MaxLength
		}
		if lo < 0 || (hi >= 0 && lo > hi) {
			return nil, fmt.Errorf("invalid length bounds [%d, %d]", lo, hi)
		}
		out = append(out, Length(lo, hi))
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("constraint has no checks")
	}
	return out, nil
}
