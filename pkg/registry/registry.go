package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// NodeFunc transforms one node of a document during a build.
// It may modify n in place; it must not restructure its ancestors.
type NodeFunc func(ctx context.Context, doc *domain.Document, n *domain.Node) error

// Any is the registration key matching every node type.
const Any = "*"

// Registry manages node callbacks keyed by node type name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string][]NodeFunc
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string][]NodeFunc),
	}
}

// Register adds a callback for nodes named name, or for every node with Any.
// Callbacks run in registration order; Any callbacks run first.
func (r *Registry) Register(name string, fn NodeFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = append(r.funcs[name], fn)
}

// Names returns the node types with registered callbacks.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for n := range r.funcs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered callbacks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, fns := range r.funcs {
		total += len(fns)
	}
	return total
}

// Apply runs the callbacks matching n. The first failure stops the chain.
func (r *Registry) Apply(ctx context.Context, doc *domain.Document, n *domain.Node) error {
	r.mu.RLock()
	fns := append(append([]NodeFunc(nil), r.funcs[Any]...), r.funcs[n.Name]...)
	r.mu.RUnlock()

	for _, fn := range fns {
		if err := fn(ctx, doc, n); err != nil {
			return fmt.Errorf("node %s (%s): %w", n.ID, n.Name, err)
		}
	}
	return nil
}
