// Package validate checks argument values against declarative constraints.
//
// Validate is pure: it never mutates the value, never panics and reports
// false for anything it cannot interpret. Numbers are Go numeric kinds only;
// the string "5" is not a number.
//
//	ok := validate.Validate(score, validate.Range(0, 1000000))
//
// Constraints can also be built from configuration with Parse.
package validate
