package providers

import (
	"fmt"
)

// Registry manages the provider for each engine
type Registry struct {
	providers map[Engine]Provider
}

// NewRegistry creates a new provider registry
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[Engine]Provider),
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider to the registry, replacing any provider for the same engine
func (r *Registry) Register(provider Provider) {
	r.providers[provider.Engine()] = provider
}

// Get retrieves the provider for an engine
func (r *Registry) Get(engine Engine) (Provider, error) {
	provider, exists := r.providers[engine]
	if !exists {
		return nil, fmt.Errorf("%w: no provider registered for %s", ErrUnknownEngine, engine)
	}
	return provider, nil
}

// List returns the registered engines in display order
func (r *Registry) List() []Engine {
	var engines []Engine
	for _, e := range Engines() {
		if _, ok := r.providers[e]; ok {
			engines = append(engines, e)
		}
	}
	return engines
}

// HasProvider checks if an engine has a provider
func (r *Registry) HasProvider(engine Engine) bool {
	_, exists := r.providers[engine]
	return exists
}
