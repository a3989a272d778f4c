package auth

import (
	"crypto/subtle"
	"errors"
	"sort"
	"sync"

	"mercator-hq/warden/pkg/config"
)

var (
	// ErrInvalidToken reports an unknown token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenDisabled reports a known but disabled token.
	ErrTokenDisabled = errors.New("token disabled")
)

// Validator checks tokens against a configured set.
type Validator struct {
	mu     sync.RWMutex
	tokens []*TokenInfo
}

var _ TokenStore = (*Validator)(nil)

// NewValidator creates a validator accepting the given tokens.
func NewValidator(tokens []*TokenInfo) *Validator {
	return &Validator{tokens: append([]*TokenInfo(nil), tokens...)}
}

// FromConfig builds a validator from the server auth section.
func FromConfig(cfg config.AuthConfig) *Validator {
	tokens := make([]*TokenInfo, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		tokens = append(tokens, &TokenInfo{
			Name:    t.Name,
			Token:   t.Token,
			Enabled: !t.Disabled,
		})
	}
	return NewValidator(tokens)
}

// Validate returns the info of token. Every configured token is compared in
// constant time.
func (v *Validator) Validate(token string) (*TokenInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var found *TokenInfo
	for _, t := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(t.Token), []byte(token)) == 1 {
			found = t
		}
	}
	switch {
	case found == nil:
		return nil, ErrInvalidToken
	case !found.Enabled:
		return nil, ErrTokenDisabled
	}
	return found, nil
}

// List returns the configured tokens sorted by name.
func (v *Validator) List() []*TokenInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()

	list := append([]*TokenInfo(nil), v.tokens...)
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Add adds a token, replacing one with the same name.
func (v *Validator) Add(info *TokenInfo) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, t := range v.tokens {
		if t.Name == info.Name {
			v.tokens[i] = info
			return
		}
	}
	v.tokens = append(v.tokens, info)
}

// Remove deletes the token with the given name.
func (v *Validator) Remove(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, t := range v.tokens {
		if t.Name == name {
			v.tokens = append(v.tokens[:i], v.tokens[i+1:]...)
			return
		}
	}
}
