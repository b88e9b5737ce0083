package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"scriptstudio/internal/generation"
)

// ErrNotConfigured indicates no adapter is registered for the provider.
var ErrNotConfigured = errors.New("provider not configured")

// ErrDuplicateProvider indicates an attempt to register a provider twice.
var ErrDuplicateProvider = errors.New("provider already registered")

// Adapter performs exactly one outbound request per invocation against a
// chat-completion endpoint and translates the provider's success and error
// shapes into the uniform generation result. No retries, no caching.
type Adapter interface {
	Name() string
	// Generate returns the model's text, or a *generation.Error carrying
	// the failure classification.
	Generate(ctx context.Context, req generation.Request) (string, error)
	// ValidateKey performs a lightweight call solely to confirm the
	// secret is accepted by the provider.
	ValidateKey(ctx context.Context, apiKey string) error
}

// Registry maintains a mapping of provider identifiers to adapters.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under the given provider identifier.
func (r *Registry) Register(providerID string, a Adapter) error {
	if a == nil {
		return errors.New("adapter must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[providerID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, providerID)
	}
	r.adapters[providerID] = a
	return nil
}

// Lookup returns the adapter for a provider identifier.
func (r *Registry) Lookup(providerID string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[providerID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, providerID)
	}
	return a, nil
}
