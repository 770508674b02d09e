package ratelimit

import "sync"

// Registry hands out one shared Limiter per name. The first registration of a
// name fixes its rate; later lookups return the same limiter regardless of the
// rate they pass.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
	opts     []Option
}

// NewRegistry creates an empty registry. Options apply to every limiter it creates.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{limiters: make(map[string]*Limiter), opts: opts}
}

// Get returns the limiter registered under name, creating it at rate if absent.
func (r *Registry) Get(name string, rate float64) (*Limiter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.limiters[name]; ok {
		return l, nil
	}
	l, err := New(name, rate, r.opts...)
	if err != nil {
		return nil, err
	}
	r.limiters[name] = l
	return l, nil
}

// Lookup returns an existing limiter without creating one.
func (r *Registry) Lookup(name string) (*Limiter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[name]
	return l, ok
}
