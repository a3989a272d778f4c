// Package trust decides whether a resource reference comes from a trusted
// origin.
//
// A Gate holds an allow-list of origins. A reference matching an entry is
// Trusted; anything else NeedsConfirmation, and the interception engine asks
// the user before the call proceeds. Matching is case-sensitive and by
// prefix unless the gate is configured for substring matching.
//
// By default every untrusted call prompts again. A gate created with
// WithSessionMemory remembers positive answers in memory for its lifetime.
package trust

import (
	"fmt"
	"strings"
	"sync"
)

// Decision is the result of evaluating a reference.
type Decision int

const (
	// NeedsConfirmation means the reference matched no allow-list entry.
	NeedsConfirmation Decision = iota

	// Trusted means the reference matched an allow-list entry.
	Trusted
)

// String returns the decision name.
func (d Decision) String() string {
	if d == Trusted {
		return "trusted"
	}
	return "needs_confirmation"
}

// MatchMode selects how allow-list entries are compared with references.
type MatchMode int

const (
	// MatchPrefix trusts references that start with an entry.
	MatchPrefix MatchMode = iota

	// MatchSubstring trusts references that contain an entry.
	MatchSubstring
)

// String returns the configuration name of the mode.
func (m MatchMode) String() string {
	if m == MatchSubstring {
		return "substring"
	}
	return "prefix"
}

// ParseMatchMode converts a configuration value. Empty means MatchPrefix.
func ParseMatchMode(s string) (MatchMode, error) {
	switch s {
	case "", "prefix":
		return MatchPrefix, nil
	case "substring", "contains":
		return MatchSubstring, nil
	default:
		return MatchPrefix, fmt.Errorf("unknown match mode %q", s)
	}
}

// Gate evaluates resource references against an allow-list.
type Gate struct {
	origins  []string
	mode     MatchMode
	remember bool

	mu       sync.Mutex
	approved map[string]struct{}
}

// Option configures a Gate.
type Option func(*Gate)

// WithMatchMode sets the match mode.
func WithMatchMode(mode MatchMode) Option {
	return func(g *Gate) {
		g.mode = mode
	}
}

// WithSessionMemory makes the gate remember approved references.
func WithSessionMemory() Option {
	return func(g *Gate) {
		g.remember = true
	}
}

// NewGate creates a gate trusting origins. Empty entries are ignored, so an
// empty allow-list trusts nothing.
func NewGate(origins []string, opts ...Option) *Gate {
	g := &Gate{approved: make(map[string]struct{})}
	for _, o := range origins {
		if o != "" {
			g.origins = append(g.origins, o)
		}
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Evaluate classifies ref.
func (g *Gate) Evaluate(ref string) Decision {
	for _, o := range g.origins {
		if g.matches(ref, o) {
			return Trusted
		}
	}

	if g.remember {
		g.mu.Lock()
		_, ok := g.approved[ref]
		g.mu.Unlock()
		if ok {
			return Trusted
		}
	}
	return NeedsConfirmation
}

// Approve records a positive answer for ref. It has no effect unless the gate
// has session memory.
func (g *Gate) Approve(ref string) {
	if !g.remember {
		return
	}
	g.mu.Lock()
	g.approved[ref] = struct{}{}
	g.mu.Unlock()
}

// Forget drops all remembered approvals.
func (g *Gate) Forget() {
	g.mu.Lock()
	g.approved = make(map[string]struct{})
	g.mu.Unlock()
}

// Origins returns a copy of the allow-list.
func (g *Gate) Origins() []string {
	return append([]string(nil), g.origins...)
}

// Mode returns the match mode.
func (g *Gate) Mode() MatchMode {
	return g.mode
}

// RemembersApprovals reports whether the gate has session memory.
func (g *Gate) RemembersApprovals() bool {
	return g.remember
}

func (g *Gate) matches(ref, origin string) bool {
	if g.mode == MatchSubstring {
		return strings.Contains(ref, origin)
	}
	return strings.HasPrefix(ref, origin)
}
