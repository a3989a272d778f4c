// Package demohost is a stand-in for the untrusted host application. It
// exposes four owners whose operations are plain typed function fields, the
// way host code would call them, and records every effect that reaches the
// originals so callers can check what was forwarded.
package demohost

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/intercept"
)

// Owner names used in policy tables.
const (
	OwnerCloud       = "cloud"
	OwnerLeaderboard = "leaderboard"
	OwnerRuntime     = "runtime"
	OwnerProject     = "project"
)

// Cloud holds shared project variables.
type Cloud struct {
	SetVariable func(ctx context.Context, name string, value any) error
	GetVariable func(name string) any
}

// Leaderboard accepts score submissions.
type Leaderboard struct {
	SubmitScore func(ctx context.Context, score float64) error
}

// Runtime loads third-party extensions by URL.
type Runtime struct {
	LoadExtension func(ctx context.Context, url string) (bool, error)
}

// Project persists the project under a title.
type Project struct {
	Save func(ctx context.Context, title string) (string, error)
}

// Host is the complete demo application.
type Host struct {
	Cloud       *Cloud
	Leaderboard *Leaderboard
	Runtime     *Runtime
	Project     *Project

	mu        sync.Mutex
	variables map[string]any
	scores    []float64
	loaded    []string
	saves     []string
	adapters  map[string]*intercept.StructHost
}

// New creates a host whose operations record their effects.
func New() *Host {
	h := &Host{variables: make(map[string]any)}

	h.Cloud = &Cloud{
		SetVariable: func(_ context.Context, name string, value any) error {
			if name == "" {
				return fmt.Errorf("variable name is empty")
			}
			h.mu.Lock()
			h.variables[name] = value
			h.mu.Unlock()
			return nil
		},
		GetVariable: func(name string) any {
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.variables[name]
		},
	}
	h.Leaderboard = &Leaderboard{
		SubmitScore: func(_ context.Context, score float64) error {
			h.mu.Lock()
			h.scores = append(h.scores, score)
			h.mu.Unlock()
			return nil
		},
	}
	h.Runtime = &Runtime{
		LoadExtension: func(_ context.Context, url string) (bool, error) {
			h.mu.Lock()
			h.loaded = append(h.loaded, url)
			h.mu.Unlock()
			return true, nil
		},
	}
	h.Project = &Project{
		Save: func(_ context.Context, title string) (string, error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.saves = append(h.saves, title)
			return fmt.Sprintf("project-%d", len(h.saves)), nil
		},
	}

	return h
}

// Hosts adapts every owner for the interception engine, keyed by owner name.
// The same adapters are returned on every call.
func (h *Host) Hosts() (map[string]intercept.Host, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.adapters == nil {
		owners := map[string]any{
			OwnerCloud:       h.Cloud,
			OwnerLeaderboard: h.Leaderboard,
			OwnerRuntime:     h.Runtime,
			OwnerProject:     h.Project,
		}
		adapters := make(map[string]*intercept.StructHost, len(owners))
		for name, owner := range owners {
			sh, err := intercept.NewStructHost(owner)
			if err != nil {
				return nil, fmt.Errorf("owner %s: %w", name, err)
			}
			adapters[name] = sh
		}
		h.adapters = adapters
	}

	out := make(map[string]intercept.Host, len(h.adapters))
	for name, sh := range h.adapters {
		out[name] = sh
	}
	return out, nil
}

// Call invokes owner.operation through the function currently stored in the
// owner's field, exactly as host code would. Installed wrappers apply.
func (h *Host) Call(ctx context.Context, owner, operation string, args ...any) (any, error) {
	hosts, err := h.Hosts()
	if err != nil {
		return nil, err
	}
	host, ok := hosts[owner]
	if !ok {
		return nil, &intercept.TargetNotFoundError{Owner: owner, Operation: operation}
	}
	op, ok := host.Operation(operation)
	if !ok {
		return nil, &intercept.TargetNotFoundError{Owner: owner, Operation: operation}
	}
	return op(ctx, args...)
}

// State is a snapshot of every effect that reached the originals.
type State struct {
	Variables  map[string]any `json:"variables"`
	Scores     []float64      `json:"scores"`
	Extensions []string       `json:"extensions"`
	Saves      []string       `json:"saves"`
}

// Snapshot returns a copy of the current state.
func (h *Host) Snapshot() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	vars := make(map[string]any, len(h.variables))
	for k, v := range h.variables {
		vars[k] = v
	}
	return State{
		Variables:  vars,
		Scores:     append([]float64(nil), h.scores...),
		Extensions: append([]string(nil), h.loaded...),
		Saves:      append([]string(nil), h.saves...),
	}
}

// VariableNames returns the names of set variables in sorted order.
func (s State) VariableNames() []string {
	names := make([]string, 0, len(s.Variables))
	for name := range s.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
