package demohost

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of host calls with the answers the user
// gives to confirmation prompts.
type Scenario struct {
	Name string `yaml:"name"`

	// Answers are given to confirmations in order. After they run out,
	// DefaultAnswer is used.
	Answers       []bool `yaml:"answers"`
	DefaultAnswer bool   `yaml:"default_answer"`

	Calls []Call `yaml:"calls"`
}

// Call is one scripted call, optionally repeated.
type Call struct {
	Owner     string `yaml:"owner"`
	Operation string `yaml:"operation"`
	Args      []any  `yaml:"args"`

	// Repeat issues the call this many times. Zero means once.
	Repeat int `yaml:"repeat"`

	// After is the pause before the first issue; Interval the pause
	// between repeats.
	After    time.Duration `yaml:"after"`
	Interval time.Duration `yaml:"interval"`
}

// Invocation is one expanded call, At after the scenario start.
type Invocation struct {
	Owner     string
	Operation string
	Args      []any
	At        time.Duration
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario %q: %w", path, err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", path, err)
	}
	return s, nil
}

// ParseScenario decodes and checks a scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	for i, c := range s.Calls {
		switch {
		case c.Owner == "" || c.Operation == "":
			return nil, fmt.Errorf("calls[%d]: owner and operation are required", i)
		case c.Repeat < 0:
			return nil, fmt.Errorf("calls[%d]: repeat must be non-negative", i)
		case c.After < 0 || c.Interval < 0:
			return nil, fmt.Errorf("calls[%d]: after and interval must be non-negative", i)
		}
	}
	return &s, nil
}

// Expand flattens repeats into individual invocations in issue order.
func (s *Scenario) Expand() []Invocation {
	var out []Invocation
	var at time.Duration
	for _, c := range s.Calls {
		n := max(c.Repeat, 1)
		at += c.After
		for i := 0; i < n; i++ {
			if i > 0 {
				at += c.Interval
			}
			out = append(out, Invocation{
				Owner:     c.Owner,
				Operation: c.Operation,
				Args:      c.Args,
				At:        at,
			})
		}
	}
	return out
}

// Clock is a manually advanced time source for deterministic replays.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current clock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}
