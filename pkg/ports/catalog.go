package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Catalog resolves node type names against the project's node definitions.
// Implementations must degrade gracefully: unknown names yield a placeholder.
type Catalog interface {
	// Lookup returns the definition for name, or domain.UnknownDefinition(name).
	Lookup(name string) domain.Definition

	// Exists reports whether name is declared by the catalog.
	Exists(name string) bool

	// Names returns every declared type name in a deterministic order.
	Names() []string
}

// Watchable defines an interface for sources that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying definitions change.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
