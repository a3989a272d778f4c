package ratelimit

import (
	"context"

	"mercator-hq/warden/pkg/policy"
)

// Kind is the policy kind name of rate limit steps.
const Kind = "rate_limit"

// Step is a policy step that counts calls on one channel.
type Step struct {
	limiter *Limiter
	channel string
}

var _ policy.Step = (*Step)(nil)

// NewStep returns a step counting calls on channel. An empty channel counts
// on the name of the operation being called.
func NewStep(limiter *Limiter, channel string) *Step {
	return &Step{limiter: limiter, channel: channel}
}

// Kind implements policy.Step.
func (s *Step) Kind() string {
	return Kind
}

// Channel returns the configured channel name.
func (s *Step) Channel() string {
	return s.channel
}

// Evaluate implements policy.Step.
func (s *Step) Evaluate(_ context.Context, call *policy.Call) policy.Result {
	channel := s.channel
	if channel == "" {
		channel = call.Operation
	}

	now := call.Time
	if now.IsZero() {
		now = s.limiter.now()
	}

	res := s.limiter.Check(channel, now)
	if !res.Allowed {
		return policy.Denied("rate limit exceeded on channel %q: more than %d calls in %s", channel, res.Limit, res.Window)
	}
	return policy.Allowed()
}
