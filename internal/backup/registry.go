package backup

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Collector produces the current content of one named backup item.
// Collectors are supplied by the platform; the engine only invokes them.
type Collector func(ctx context.Context) ([]byte, error)

// Restorer writes restored content back for one named backup item.
type Restorer func(ctx context.Context, data []byte) error

// Registry maps item names to their collectors and restorers.
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
	restorers  map[string]Restorer
}

func NewRegistry() *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
		restorers:  make(map[string]Restorer),
	}
}

func (r *Registry) RegisterCollector(name string, c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors[name] = c
}

func (r *Registry) RegisterRestorer(name string, rs Restorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restorers[name] = rs
}

func (r *Registry) Collector(name string) (Collector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collectors[name]
	return c, ok
}

func (r *Registry) Restorer(name string) (Restorer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.restorers[name]
	return rs, ok
}

// Items returns all registered collector names, sorted. This is the default
// item set for backups that do not request a subset.
func (r *Registry) Items() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FileCollector reads a single file as the item content.
func FileCollector(path string) Collector {
	return func(ctx context.Context) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	}
}

// FileRestorer writes the item content back to a single file.
func FileRestorer(path string) Restorer {
	return func(ctx context.Context, data []byte) error {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
}
