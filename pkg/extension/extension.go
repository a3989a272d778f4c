// Package extension describes Warden to a host's extension registry.
//
// A Descriptor is metadata only: an identifier, a display name and the
// capabilities the host may list. It carries no policy logic.
package extension

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/config"
)

// CapabilityKind is the block shape a capability takes in the host.
type CapabilityKind string

const (
	KindCommand  CapabilityKind = "command"
	KindReporter CapabilityKind = "reporter"
	KindBoolean  CapabilityKind = "boolean"
	KindHat      CapabilityKind = "hat"
)

// Capability is one named query-style entry.
type Capability struct {
	Opcode string         `json:"opcode"`
	Kind   CapabilityKind `json:"blockType"`
	Text   string         `json:"text"`
}

// Descriptor is what the host registry receives.
type Descriptor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Capabilities []Capability `json:"blocks"`
}

var idPattern = regexp.MustCompile(`^[a-z0-9]+$`)

// Validate checks the identifier and every capability.
func (d Descriptor) Validate() error {
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("extension id %q must be lowercase alphanumeric", d.ID)
	}
	if d.Name == "" {
		return errors.New("extension name is required")
	}
	seen := make(map[string]bool, len(d.Capabilities))
	for _, c := range d.Capabilities {
		if c.Opcode == "" {
			return errors.New("capability opcode is required")
		}
		if seen[c.Opcode] {
			return fmt.Errorf("duplicate capability %q", c.Opcode)
		}
		seen[c.Opcode] = true
		switch c.Kind {
		case KindCommand, KindReporter, KindBoolean, KindHat:
		default:
			return fmt.Errorf("capability %q has unknown kind %q", c.Opcode, c.Kind)
		}
	}
	return nil
}

// DefaultCapabilities are advertised when the configuration lists none.
func DefaultCapabilities() []Capability {
	return []Capability{
		{Opcode: "blockedCount", Kind: KindReporter, Text: "blocked operations"},
		{Opcode: "isWrapped", Kind: KindBoolean, Text: "is [OPERATION] protected?"},
	}
}

// FromConfig builds the descriptor from the extension section.
func FromConfig(cfg config.ExtensionConfig) Descriptor {
	d := Descriptor{ID: cfg.ID, Name: cfg.Name}
	for _, c := range cfg.Capabilities {
		d.Capabilities = append(d.Capabilities, Capability{
			Opcode: c.Opcode,
			Kind:   CapabilityKind(c.Kind),
			Text:   c.Text,
		})
	}
	if len(d.Capabilities) == 0 {
		d.Capabilities = DefaultCapabilities()
	}
	return d
}

// ErrAlreadyRegistered is returned by Register for a known ID.
var ErrAlreadyRegistered = errors.New("extension already registered")

// Registry is an in-process stand-in for a host's extension registry.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Descriptor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Descriptor)}
}

// Register validates and adds d.
func (r *Registry) Register(d Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, d.ID)
	}
	r.items[d.ID] = d
	return nil
}

// Get returns the descriptor registered under id.
func (r *Registry) Get(id string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.items[id]
	return d, ok
}

// List returns all descriptors sorted by ID.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
