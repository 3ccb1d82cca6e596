package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownIssuer is returned by Resolve when no configured entry's
	// issuer exactly matches the token's iss claim. Its message is safe to
	// surface in a WWW-Authenticate challenge.
	ErrUnknownIssuer = errors.New("token issuer is not a trusted authorization server")

	// ErrInvalidConfiguration reports a startup-time misconfiguration,
	// such as duplicate issuers or a half-set environment. It is fatal to
	// construction and never produced per request.
	ErrInvalidConfiguration = errors.New("invalid resource server configuration")
)

// Registry is the set of authorization servers a resource server trusts,
// keyed by issuer. It is immutable after construction and safe for
// concurrent use without locking.
type Registry struct {
	entries  []Entry
	byIssuer map[string]int
}

// New builds a registry from the given entries. Every entry is defaulted
// and vetted; duplicate issuers or an empty set fail with
// ErrInvalidConfiguration.
func New(entries []Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: at least one authorization server is required", ErrInvalidConfiguration)
	}

	registry := &Registry{
		entries:  make([]Entry, len(entries)),
		byIssuer: make(map[string]int, len(entries)),
	}
	for i, entry := range entries {
		entry = entry.withDefaults()
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
		}
		if _, dup := registry.byIssuer[entry.Issuer]; dup {
			return nil, fmt.Errorf("%w: duplicate issuer %q", ErrInvalidConfiguration, entry.Issuer)
		}
		registry.entries[i] = entry
		registry.byIssuer[entry.Issuer] = i
	}

	return registry, nil
}

// Resolve returns the entry whose issuer exactly equals the given iss
// claim. Anything short of exact string equality, including prefix and
// case variations, is ErrUnknownIssuer.
func (r *Registry) Resolve(issuer string) (*Entry, error) {
	i, ok := r.byIssuer[issuer]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownIssuer, issuer)
	}
	entry := r.entries[i].clone()
	return &entry, nil
}

// Entries returns the configured entries in their original order, the same
// order the discovery document advertises.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	for i, entry := range r.entries {
		entries[i] = entry.clone()
	}
	return entries
}
