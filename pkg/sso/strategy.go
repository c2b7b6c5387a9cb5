package sso

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/platinummonkey/qauth/pkg/identity"
)

// Strategy drives one identity provider through the login redirect round
// trip.
type Strategy interface {
	// Name is the strategy's routing name, e.g. "google"
	Name() string

	// BeginAuth redirects the browser to the provider's authorization
	// endpoint, carrying the state nonce
	BeginAuth(w http.ResponseWriter, r *http.Request, state string) error

	// CompleteAuth processes the provider callback and returns the
	// verified principal. Any error means provider authentication failed.
	CompleteAuth(ctx context.Context, r *http.Request) (*identity.Principal, error)
}

// Registry holds the configured strategies. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry builds a registry from the given strategies. Names must be
// non-empty and unique.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	m := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		name := s.Name()
		if name == "" {
			return nil, fmt.Errorf("sso: strategy with empty name")
		}
		if _, dup := m[name]; dup {
			return nil, fmt.Errorf("sso: duplicate strategy name %q", name)
		}
		m[name] = s
	}
	return &Registry{strategies: m}, nil
}

// Get returns the strategy registered under name
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// Names returns the registered strategy names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
