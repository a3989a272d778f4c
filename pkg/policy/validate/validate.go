package validate

import "strings"

// Validate reports whether value satisfies every constraint. With no
// constraints every value is valid. A constraint that panics counts as a
// failure.
func Validate(value any, constraints ...Constraint) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	for _, c := range constraints {
		if c == nil || !c.Check(value) {
			return false
		}
	}
	return true
}

// Describe joins the descriptions of constraints.
func Describe(constraints []Constraint) string {
	parts := make([]string, 0, len(constraints))
	for _, c := range constraints {
		if c != nil {
			parts = append(parts, c.Describe())
		}
	}
	return strings.Join(parts, ", ")
}
