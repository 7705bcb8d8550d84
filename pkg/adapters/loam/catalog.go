// Package loam loads node definitions from a loam document repository.
//
// Each document either declares one definition in its frontmatter (the
// markdown body becomes the description) or is a library listing inline
// definitions and imports of other libraries under "nodes".
package loam

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/loam"
)

// Catalog implements ports.Catalog and ports.Watchable over a loam repository.
type Catalog struct {
	Repo   *loam.TypedRepository[dto.DefinitionMetadata]
	defs   *memory.Catalog
	base   []domain.Definition
	logger *slog.Logger
}

// Option configures the Catalog.
type Option func(*Catalog)

// WithLogger configures a logger for the Catalog.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// WithBase declares definitions the repository may shadow by name,
// typically memory.Builtins.
func WithBase(defs []domain.Definition) Option {
	return func(c *Catalog) {
		c.base = defs
	}
}

// New creates a Catalog over repo. Call Load before use.
func New(repo *loam.TypedRepository[dto.DefinitionMetadata], opts ...Option) *Catalog {
	c := &Catalog{
		Repo:   repo,
		defs:   memory.NewCatalog(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open initializes a read-only loam repository at dir and loads it.
func Open(ctx context.Context, dir string, opts ...Option) (*Catalog, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode yields json.Number for every numeric value regardless of
	// the source format.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	c := New(loam.NewTypedRepository[dto.DefinitionMetadata](repo), opts...)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads every document and replaces the current definitions. A name
// declared by two different documents is an error; the previous definitions
// are kept in that case.
func (c *Catalog) Load(ctx context.Context) error {
	docs, err := c.Repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loam list failed: %w", err)
	}

	var defs []domain.Definition
	sources := make(map[string]string)
	add := func(def domain.Definition, source string) error {
		if existing, ok := sources[def.Name]; ok {
			if existing == source {
				return nil
			}
			return fmt.Errorf("collision detected: definition '%s' is declared in both '%s' and '%s'", def.Name, existing, source)
		}
		sources[def.Name] = source
		defs = append(defs, def)
		return nil
	}

	// Libraries imported by another library are loaded through the importer,
	// which may shadow some of their definitions.
	imported := make(map[string]bool)
	for _, doc := range docs {
		for _, item := range doc.Data.Nodes {
			if ref, ok := item.(string); ok {
				imported[trimExtension(ref)] = true
			}
		}
	}

	for _, doc := range docs {
		id := trimExtension(doc.ID)
		meta := doc.Data
		switch {
		case meta.IsLibrary():
			resolved, err := c.resolve(ctx, id, meta.Nodes, map[string]bool{id: true})
			if err != nil {
				return fmt.Errorf("error resolving library %s: %w", id, err)
			}
			if imported[id] {
				continue
			}
			for _, r := range resolved {
				if err := add(r.def, r.source); err != nil {
					return err
				}
			}
		case meta.Name != "":
			// List leaves bodies empty; the markdown body is the description.
			full, err := c.Repo.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to load definition '%s': %w", id, err)
			}
			def, err := full.Data.ToDefinition(full.Content)
			if err != nil {
				return fmt.Errorf("invalid definition in %s: %w", id, err)
			}
			if err := add(def, id); err != nil {
				return err
			}
		default:
			c.logger.Debug("Skipping document without definitions", "id", doc.ID)
		}
	}

	c.defs.Replace(append(slices.Clone(c.base), defs...))
	c.logger.Debug("Catalog loaded", "definitions", len(defs), "base", len(c.base))
	return nil
}

type sourced struct {
	def    domain.Definition
	source string
}

// resolve expands a library's entries. Imports are loaded recursively with
// DFS cycle detection; later entries shadow earlier ones by name, so local
// definitions override imported ones.
func (c *Catalog) resolve(ctx context.Context, source string, items []any, visited map[string]bool) ([]sourced, error) {
	byName := make(map[string]sourced)
	var order []string
	put := func(s sourced) {
		if _, exists := byName[s.def.Name]; !exists {
			order = append(order, s.def.Name)
		}
		byName[s.def.Name] = s
	}

	for _, item := range items {
		switch v := item.(type) {
		case string:
			refID := trimExtension(v)
			if visited[refID] {
				return nil, fmt.Errorf("cycle detected in library imports: %s", refID)
			}
			visited[refID] = true

			doc, err := c.Repo.Get(ctx, refID)
			if err != nil {
				return nil, fmt.Errorf("failed to load imported library '%s': %w", refID, err)
			}
			imported, err := c.resolve(ctx, refID, doc.Data.Nodes, visited)
			delete(visited, refID)
			if err != nil {
				return nil, err
			}
			for _, s := range imported {
				put(s)
			}

		case map[string]any, map[any]any:
			meta, err := dto.DecodeDefinition(v)
			if err != nil {
				return nil, err
			}
			def, err := meta.ToDefinition("")
			if err != nil {
				return nil, fmt.Errorf("inline definition: %w", err)
			}
			put(sourced{def: def, source: source})

		default:
			return nil, fmt.Errorf("invalid definition entry type: %T", v)
		}
	}

	out := make([]sourced, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out, nil
}

// Lookup implements ports.Catalog.
func (c *Catalog) Lookup(name string) domain.Definition {
	return c.defs.Lookup(name)
}

// Exists implements ports.Catalog.
func (c *Catalog) Exists(name string) bool {
	return c.defs.Exists(name)
}

// Names implements ports.Catalog.
func (c *Catalog) Names() []string {
	return c.defs.Names()
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable. The catalog reloads itself on every
// repository change before signaling; failed reloads keep the previous
// definitions and are logged.
func (c *Catalog) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := c.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				if err := c.Load(ctx); err != nil {
					c.logger.Warn("Catalog reload failed", "id", evt.ID, "err", err)
					continue
				}
				// Coalesce bursts: a pending signal already covers this change.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
