// Package loader turns the policy table of a Config into descriptors the
// interception engine can install.
//
// All rate_limit policies share one Limiter, so operations that name the
// same channel draw from the same window. Each trust_gate policy gets its own
// Gate with the allow-list resolved for that policy.
package loader

import (
	"fmt"
	"time"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/policy"
	"mercator-hq/warden/pkg/policy/ratelimit"
	"mercator-hq/warden/pkg/policy/trust"
	"mercator-hq/warden/pkg/policy/validate"
)

// Set is the result of building a policy table.
type Set struct {
	// Descriptors are in table order.
	Descriptors []policy.Descriptor

	// Limiter holds the windows of every rate_limit policy in the set.
	Limiter *ratelimit.Limiter

	// Gates lists the trust gates in table order.
	Gates []*trust.Gate
}

// Lookup returns the descriptor bound to owner.operation.
func (s *Set) Lookup(owner, operation string) (policy.Descriptor, bool) {
	for _, d := range s.Descriptors {
		if d.Owner == owner && d.Operation == operation {
			return d, true
		}
	}
	return policy.Descriptor{}, false
}

// Option configures Build.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock sets the time source of the shared limiter.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Build creates descriptors for every operation in cfg. cfg is expected to
// have defaults applied.
func Build(cfg *config.Config, opts ...Option) (*Set, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	set := &Set{
		Limiter: ratelimit.New(
			ratelimit.Config{Threshold: cfg.RateLimit.Threshold, Window: cfg.RateLimit.Window},
			ratelimit.WithClock(o.now),
		),
	}

	for i, op := range cfg.Operations {
		d, err := set.descriptor(op)
		if err != nil {
			return nil, &BuildError{Index: i, Owner: op.Owner, Operation: op.Operation, Cause: err}
		}
		set.Descriptors = append(set.Descriptors, d)
	}

	return set, nil
}

func (s *Set) descriptor(op config.OperationConfig) (policy.Descriptor, error) {
	result, err := policy.ParseResultKind(op.Result)
	if err != nil {
		return policy.Descriptor{}, err
	}

	d := policy.Descriptor{
		Owner:     op.Owner,
		Operation: op.Operation,
		Result:    result,
	}

	for j, p := range op.Policies {
		step, err := s.step(op, p)
		if err != nil {
			return policy.Descriptor{}, fmt.Errorf("policies[%d] (%s): %w", j, p.Kind, err)
		}
		d.Steps = append(d.Steps, step)
	}

	return d, nil
}

func (s *Set) step(op config.OperationConfig, p config.PolicyConfig) (policy.Step, error) {
	switch p.Kind {
	case ratelimit.Kind:
		channel := p.Channel
		if channel == "" {
			channel = op.Operation
		}
		s.Limiter.Configure(channel, ratelimit.Config{Threshold: p.Threshold, Window: p.Window})
		return ratelimit.NewStep(s.Limiter, channel), nil

	case validate.Kind:
		constraints, err := validate.Parse(constraintSpec(p.Constraint))
		if err != nil {
			return nil, err
		}
		return validate.NewStep(p.Arg, p.Field, constraints...), nil

	case trust.Kind:
		mode, err := trust.ParseMatchMode(p.Match)
		if err != nil {
			return nil, err
		}
		gateOpts := []trust.Option{trust.WithMatchMode(mode)}
		switch p.Remember {
		case "", "none":
		case "session":
			gateOpts = append(gateOpts, trust.WithSessionMemory())
		default:
			return nil, fmt.Errorf("unknown remember mode %q", p.Remember)
		}
		gate := trust.NewGate(p.Origins, gateOpts...)
		s.Gates = append(s.Gates, gate)
		return trust.NewStep(gate, p.Arg, p.Field, p.Prompt), nil

	default:
		return nil, fmt.Errorf("unknown policy kind %q", p.Kind)
	}
}

func constraintSpec(c config.ConstraintConfig) validate.Spec {
	typ := c.Type
	if typ == "boolean" {
		typ = validate.TypeBool
	}
	return validate.Spec{
		Type:      typ,
		Min:       c.Min,
		Max:       c.Max,
		Enum:      c.Enum,
		Pattern:   c.Pattern,
		MinLength: c.MinLength,
		MaxLength: c.MaxLength,
	}
}
