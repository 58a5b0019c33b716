package breaker

import "sync"

// Registry maintains one circuit breaker per dependency name.
// All breakers share the same base configuration.
// Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	cfg      Config
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates an empty registry. Each breaker created by Get inherits
// cfg with its Name set to the lookup key.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for name, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}

	cfg := r.cfg
	cfg.Name = name
	cb = New(cfg)
	r.breakers[name] = cb
	return cb
}

// States returns a snapshot of every registered breaker's state,
// keyed by dependency name. Used by health and degradation reporting.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		states[name] = cb.State()
	}
	return states
}
