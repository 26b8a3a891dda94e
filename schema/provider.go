package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrTypeNotFound is returned when a provider cannot resolve a type name.
// During a crawl this is a configuration error: the schema set handed to
// the crawler is incomplete.
var ErrTypeNotFound = errors.New("schema: type not found")

// ResolveOption adjusts a single property resolution.
type ResolveOption func(*ResolveOptions)

// ResolveOptions holds the optional parameters of a property resolution.
type ResolveOptions struct {
	// ProfileURL scopes resolution of sliced elements: when set, array
	// results are restricted to members of the slice declared under
	// this profile URL, and schemas registered under the URL take
	// precedence over base type schemas.
	ProfileURL string
}

// WithProfileURL scopes property resolution to a profile's slice.
func WithProfileURL(url string) ResolveOption {
	return func(o *ResolveOptions) {
		o.ProfileURL = url
	}
}

// Provider supplies structural schemas and property access to a crawl.
// Implementations must be safe for concurrent read-only use; a crawl
// never writes through its provider.
type Provider interface {
	// Schema returns the structural schema for a type name. It returns
	// an error wrapping ErrTypeNotFound when the name is unknown.
	Schema(ctx context.Context, typeName string) (*TypeSchema, error)

	// ResolveProperty resolves a property key against a typed value,
	// returning zero, one, or many typed values. A legitimately absent
	// property resolves to an empty slice, not an error.
	ResolveProperty(ctx context.Context, tv TypedValue, key string, opts ...ResolveOption) ([]TypedValue, error)
}

// Registry is an in-memory Provider backed by maps keyed on type name
// and canonical URL. Registration and lookup may not be interleaved
// concurrently, but concurrent lookups are safe, so a single Registry
// can serve many simultaneous crawls.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*TypeSchema
	byURL  map[string]*TypeSchema

	slices *sliceEvaluator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*TypeSchema, 32),
		byURL:  make(map[string]*TypeSchema, 32),
		slices: newSliceEvaluator(),
	}
}

// Register adds a schema, indexed by its type name and, when present,
// its canonical URL. Later registrations replace earlier ones.
func (r *Registry) Register(s *TypeSchema) {
	if s == nil || s.Name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[s.Name] = s
	if s.URL != "" {
		r.byURL[s.URL] = s
	}
}

// Schema implements Provider. Lookup tries the type name first, then
// the canonical URL form so profile schemas can be fetched by URL.
func (r *Registry) Schema(ctx context.Context, typeName string) (*TypeSchema, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if s, ok := r.byName[typeName]; ok {
		return s, nil
	}
	if s, ok := r.byURL[typeName]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typeName)
}

// ResolveProperty implements Provider. The key may be "$this", a simple
// property key, or a dotted compound key.
func (r *Registry) ResolveProperty(ctx context.Context, tv TypedValue, key string, opts ...ResolveOption) ([]TypedValue, error) {
	// $this is pure identity; it must work for values whose type has no
	// registered schema, so it short-circuits the schema lookup.
	if key == This {
		return []TypedValue{tv}, nil
	}

	var ro ResolveOptions
	for _, opt := range opts {
		opt(&ro)
	}

	sch, err := r.schemaFor(ctx, tv.Type, ro.ProfileURL)
	if err != nil {
		return nil, err
	}
	return resolve(ctx, r, sch, tv, key, &ro, r.slices)
}

// schemaFor returns the schema to resolve against: the profile schema
// when one is registered under the profile URL, the base type schema
// otherwise.
func (r *Registry) schemaFor(ctx context.Context, typeName, profileURL string) (*TypeSchema, error) {
	if profileURL != "" {
		r.mu.RLock()
		s, ok := r.byURL[profileURL]
		r.mu.RUnlock()
		if ok {
			return s, nil
		}
	}
	return r.Schema(ctx, typeName)
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Types returns the registered type names, in no particular order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}

// Chain is a Provider that tries several providers in order, in the
// chain-of-responsibility style. The first provider that resolves a
// type wins; ErrTypeNotFound moves on to the next one.
type Chain struct {
	providers []Provider
	slices    *sliceEvaluator
}

// NewChain creates a provider chain.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers, slices: newSliceEvaluator()}
}

// Add appends a provider to the chain.
func (c *Chain) Add(p Provider) {
	c.providers = append(c.providers, p)
}

// Schema tries each provider until one resolves the type.
func (c *Chain) Schema(ctx context.Context, typeName string) (*TypeSchema, error) {
	for _, p := range c.providers {
		s, err := p.Schema(ctx, typeName)
		if err == nil && s != nil {
			return s, nil
		}
		if err != nil && !errors.Is(err, ErrTypeNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typeName)
}

// ResolveProperty resolves against the first provider that knows the
// value's type.
func (c *Chain) ResolveProperty(ctx context.Context, tv TypedValue, key string, opts ...ResolveOption) ([]TypedValue, error) {
	if key == This {
		return []TypedValue{tv}, nil
	}

	var ro ResolveOptions
	for _, opt := range opts {
		opt(&ro)
	}

	sch, err := c.Schema(ctx, tv.Type)
	if err != nil {
		return nil, err
	}
	return resolve(ctx, c, sch, tv, key, &ro, c.slices)
}

// NullProvider is a Provider that knows no types. Schema lookups return
// ErrTypeNotFound and property resolution yields nothing beyond the
// "$this" identity. It stands in where no provider was supplied.
type NullProvider struct{}

// Schema always returns ErrTypeNotFound.
func (NullProvider) Schema(ctx context.Context, typeName string) (*TypeSchema, error) {
	return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typeName)
}

// ResolveProperty resolves "$this" to the value itself and every other
// key to an empty sequence.
func (NullProvider) ResolveProperty(ctx context.Context, tv TypedValue, key string, opts ...ResolveOption) ([]TypedValue, error) {
	if key == This {
		return []TypedValue{tv}, nil
	}
	return nil, nil
}

// Verify interface compliance.
var (
	_ Provider = (*Registry)(nil)
	_ Provider = (*Chain)(nil)
	_ Provider = NullProvider{}
)
