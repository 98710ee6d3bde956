// Package provider defines the interface and implementations for external
// facility data sources.
package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/envirowatch/envirowatch/internal/model"
)

// Provider defines the interface each facility data source must implement.
type Provider interface {
	// Name returns the unique provider identifier (e.g., "azure_poi",
	// "hifld", "overpass", "epa_echo").
	Name() string

	// Source returns the source tag stamped on every record this provider
	// emits.
	Source() model.Source

	// Search queries the provider for facilities around center. A failed
	// transport or parse returns (nil, err); the caller contains the error.
	// An empty result set is a valid, non-error outcome.
	Search(ctx context.Context, center model.Coordinate, radiusMeters float64) ([]model.FacilityRecord, error)
}

// Registry holds providers in registration order. Order matters: the
// aggregator's first-seen dedup rule follows it.
type Registry struct {
	mu        sync.RWMutex
	providers []Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a provider. Registering the same name twice replaces the
// earlier entry in place, keeping its position.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.providers {
		if existing.Name() == p.Name() {
			r.providers[i] = p
			return
		}
	}
	r.providers = append(r.providers, p)
}

// All returns the providers in registration order.
func (r *Registry) All() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, len(r.providers))
	copy(out, r.providers)
	return out
}

// Names returns the registered provider names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	return names
}

// placeholderName builds the display name used when a provider record has
// no name of its own.
func placeholderName(source model.Source, ordinal int) string {
	return fmt.Sprintf("Technology Facility %d (%s)", ordinal, source)
}

const unknownOperator = "Unknown Operator"
