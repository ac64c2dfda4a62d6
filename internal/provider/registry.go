package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Registry maps provider names to configured providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry creates a registry holding the given providers.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// NormalizeName folds a configured provider name to its registry key.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a provider under its Name.
func (r *Registry) Register(p Provider) {
	r.providers[NormalizeName(p.Name())] = p
}

// Lookup returns the provider registered as name. An unregistered name
// yields an Unknown provider that fails every request, so a bad selection
// degrades per conversation instead of aborting the run.
func (r *Registry) Lookup(name string) Provider {
	if p, ok := r.providers[NormalizeName(name)]; ok {
		return p
	}
	return Unknown{name: name}
}

// Names returns the sorted names of registered providers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Unknown stands in for an unregistered provider name.
type Unknown struct {
	name string
}

// Name returns the unrecognised name.
func (u Unknown) Name() string {
	return u.name
}

// Transcribe always fails with ErrUnknownProvider.
func (u Unknown) Transcribe(context.Context, Request) (Result, error) {
	return Result{}, fmt.Errorf("%w: %q", ErrUnknownProvider, u.name)
}

var _ Provider = Unknown{}
