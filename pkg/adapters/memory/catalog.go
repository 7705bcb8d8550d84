package memory

import (
	"sort"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Catalog implements ports.Catalog over a fixed set of definitions.
// Safe for concurrent use; Replace swaps the whole set atomically.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]domain.Definition
}

// NewCatalog creates a catalog from definitions. Later duplicates win.
func NewCatalog(defs ...domain.Definition) *Catalog {
	c := &Catalog{}
	c.Replace(defs)
	return c
}

// Replace swaps the catalog contents.
func (c *Catalog) Replace(defs []domain.Definition) {
	m := make(map[string]domain.Definition, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			continue
		}
		m[d.Name] = d
	}
	c.mu.Lock()
	c.defs = m
	c.mu.Unlock()
}

// Lookup returns the definition for name, or an unknown placeholder.
func (c *Catalog) Lookup(name string) domain.Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if d, ok := c.defs[name]; ok {
		return d
	}
	return domain.UnknownDefinition(name)
}

// Exists reports whether name is declared.
func (c *Catalog) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.defs[name]
	return ok
}

// Names returns declared type names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	sort.Strings(names) // Deterministic order
	return names
}

// Builtins returns the core node set shipped with every project.
func Builtins() []domain.Definition {
	return []domain.Definition{
		{Name: "Sequence", Category: domain.CategoryComposite, Children: domain.ChildrenUnbounded, Desc: "Runs children in order until one fails"},
		{Name: "Selector", Category: domain.CategoryComposite, Children: domain.ChildrenUnbounded, Desc: "Runs children in order until one succeeds"},
		{Name: "Parallel", Category: domain.CategoryComposite, Children: domain.ChildrenUnbounded, Desc: "Runs all children concurrently"},
		{Name: "Inverter", Category: domain.CategoryDecorator, Children: 1, Desc: "Inverts the child's result"},
		{Name: "AlwaysSuccess", Category: domain.CategoryDecorator, Children: 1},
		{Name: "Repeat", Category: domain.CategoryDecorator, Children: 1, Args: []domain.ArgDef{{Name: "count", Type: "int"}}},
		{Name: "SubTree", Category: domain.CategoryAction, Children: 0, Desc: "Transcludes another tree"},
		{Name: "Log", Category: domain.CategoryAction, Args: []domain.ArgDef{{Name: "message", Type: "string"}}},
		{Name: "Wait", Category: domain.CategoryAction, Args: []domain.ArgDef{{Name: "time", Type: "float?"}}, Input: []string{"time?"}},
		{Name: "Check", Category: domain.CategoryCondition, Args: []domain.ArgDef{{Name: "value", Type: domain.ArgTypeExpr}}},
		{Name: "Calculate", Category: domain.CategoryAction, Args: []domain.ArgDef{{Name: "value", Type: domain.ArgTypeCode}}, Output: []string{"result"}},
		{Name: "Let", Category: domain.CategoryAction, Args: []domain.ArgDef{{Name: "value", Type: "json?"}}, Input: []string{"value?"}, Output: []string{"result"}},
	}
}
