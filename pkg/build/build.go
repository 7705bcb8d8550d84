// Package build runs batch transforms over every document of a project and
// writes the results to an output store.
package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/transclusion"
	"github.com/aretw0/arbor/pkg/tree"
)

// TreeFunc is called once per document, before or after its nodes are visited.
type TreeFunc func(ctx context.Context, path string, doc *domain.Document) error

// Builder reads documents from a source store and writes their transformed
// storage form to a destination store under the same paths.
type Builder struct {
	src      ports.DocumentStore
	dst      ports.DocumentStore
	resolver *transclusion.Resolver
	nodes    *registry.Registry
	before   TreeFunc
	after    TreeFunc
	filter   func(path string) bool
	inline   bool
	logger   *slog.Logger
}

// Option configures the Builder.
type Option func(*Builder)

// WithInlineSubtrees replaces subtree references by their content in the output.
func WithInlineSubtrees(inline bool) Option {
	return func(b *Builder) {
		b.inline = inline
	}
}

// WithBefore registers the pre-tree callback.
func WithBefore(fn TreeFunc) Option {
	return func(b *Builder) {
		b.before = fn
	}
}

// WithAfter registers the post-tree callback.
func WithAfter(fn TreeFunc) Option {
	return func(b *Builder) {
		b.after = fn
	}
}

// WithRegistry sets the per-node callbacks.
func WithRegistry(r *registry.Registry) Option {
	return func(b *Builder) {
		b.nodes = r
	}
}

// WithFilter restricts the build to paths for which keep returns true.
func WithFilter(keep func(path string) bool) Option {
	return func(b *Builder) {
		b.filter = keep
	}
}

// WithLogger configures a logger for the Builder.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New creates a Builder from src to dst. src and dst may be the same store.
func New(src, dst ports.DocumentStore, opts ...Option) *Builder {
	b := &Builder{
		src:    src,
		dst:    dst,
		nodes:  registry.NewRegistry(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.resolver = transclusion.New(src, transclusion.WithLogger(b.logger))
	return b
}

// Report summarizes a build.
type Report struct {
	Built    []string
	Skipped  []string
	Failed   map[string]error
	Warnings map[string]error
}

// Err joins every failure, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for p, err := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", p, err))
	}
	return errors.Join(errs...)
}

// Run builds every document. A failing document does not stop the build;
// its error is recorded in the report and returned joined with the others.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	paths, err := b.src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	report := &Report{
		Failed:   make(map[string]error),
		Warnings: make(map[string]error),
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if b.filter != nil && !b.filter(p) {
			report.Skipped = append(report.Skipped, p)
			continue
		}
		warn, err := b.buildOne(ctx, p)
		if warn != nil {
			report.Warnings[p] = warn
			b.logger.Warn("Document built with unresolved subtrees", "document", p, "err", warn)
		}
		if err != nil {
			report.Failed[p] = err
			b.logger.Error("Document build failed", "document", p, "err", err)
			continue
		}
		report.Built = append(report.Built, p)
		b.logger.Debug("Document built", "document", p)
	}
	return report, report.Err()
}

func (b *Builder) buildOne(ctx context.Context, path string) (warn, err error) {
	doc, err := b.src.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: document has no root", domain.ErrSerialization)
	}
	doc = tree.StorageDocument(doc, false)

	if b.inline {
		warn = b.resolver.Expand(ctx, path, doc)
		doc.Root = tree.Inline(doc.Root)
	}
	tree.Renumber(doc.Root)

	if b.before != nil {
		if err := b.before(ctx, path, doc); err != nil {
			return warn, fmt.Errorf("before: %w", err)
		}
	}

	var nodeErr error
	tree.Walk(doc.Root, func(n *domain.Node) bool {
		if nodeErr != nil {
			return false
		}
		nodeErr = b.nodes.Apply(ctx, doc, n)
		return true
	})
	if nodeErr != nil {
		return warn, nodeErr
	}

	if b.after != nil {
		if err := b.after(ctx, path, doc); err != nil {
			return warn, fmt.Errorf("after: %w", err)
		}
	}

	out := tree.StorageDocument(doc, b.inline)
	if err := b.dst.Write(ctx, path, out); err != nil {
		return warn, fmt.Errorf("failed to write output: %w", err)
	}
	return warn, nil
}
