package storage

import "fmt"

// Registry holds the backends configured at startup. Dispatch is by
// backend name; the set never changes after construction time.
type Registry struct {
	backends map[string]Backend
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

func (r *Registry) Register(b Backend) {
	r.backends[b.Name()] = b
}

func (r *Registry) Get(name string) (Backend, error) {
	b, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q", name)
	}
	return b, nil
}
