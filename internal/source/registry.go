// Package source composes review providers: lookup by name, multi-source fan-in and retries.
package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Shaizy-S/AutoSentiment/internal/ports"
)

// Registry keeps a mapping from provider names to their implementations.
type Registry struct {
	providers map[string]ports.ReviewProvider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]ports.ReviewProvider{}}
}

// Register adds or replaces a provider implementation.
func (r *Registry) Register(name string, provider ports.ReviewProvider) {
	if r.providers == nil {
		r.providers = map[string]ports.ReviewProvider{}
	}
	r.providers[name] = provider
}

// Resolve returns a provider by name or an error if it is absent.
func (r *Registry) Resolve(name string) (ports.ReviewProvider, error) {
	if provider, ok := r.providers[name]; ok {
		return provider, nil
	}
	return nil, fmt.Errorf("provider %s is not registered (known: %s)", name, strings.Join(r.Names(), ", "))
}

// Names lists registered providers in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
