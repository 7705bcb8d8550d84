// Package transclusion expands subtree references in place and detects
// reference cycles and stale expansions.
package transclusion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
)

// Resolver loads referenced documents through a store and splices their
// content under the transclusion points of a host tree.
type Resolver struct {
	store  ports.DocumentStore
	logger *slog.Logger
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithLogger configures a logger for the Resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver reading subtrees from store.
func New(store ports.DocumentStore, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clean normalizes a document path so equal references compare equal.
func Clean(p string) string {
	return path.Clean("/" + p)[1:]
}

// stack is the call-scoped set of paths currently being expanded.
type stack struct {
	paths []string
}

func (s *stack) contains(p string) bool {
	return slices.Contains(s.paths, p)
}

// push adds p and returns its release, to be deferred by the caller.
func (s *stack) push(p string) func() {
	s.paths = append(s.paths, p)
	n := len(s.paths)
	return func() {
		s.paths = s.paths[:n-1]
	}
}

// Expand resolves every transclusion below doc's root. hostPath is the path
// doc was loaded from ("" for unsaved documents) and seeds the stack, so a
// document referencing itself is reported as a cycle.
//
// Expansion never aborts: failing subtrees become flagged nodes and all
// problems are returned joined, while the tree stays usable.
func (r *Resolver) Expand(ctx context.Context, hostPath string, doc *domain.Document) error {
	if doc == nil || doc.Root == nil {
		return nil
	}
	return r.ExpandNode(ctx, hostPath, doc.Root)
}

// ExpandNode resolves the transclusions at and below n.
func (r *Resolver) ExpandNode(ctx context.Context, hostPath string, n *domain.Node) error {
	st := &stack{}
	if hostPath != "" {
		defer st.push(Clean(hostPath))()
	}
	return r.expand(ctx, n, st)
}

func (r *Resolver) expand(ctx context.Context, n *domain.Node, st *stack) error {
	if n.IsSubtree() {
		return r.transclude(ctx, n, st)
	}
	var errs []error
	for _, c := range n.Children {
		if err := r.expand(ctx, c, st); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Resolver) transclude(ctx context.Context, n *domain.Node, st *stack) error {
	p := Clean(n.Path)
	n.Children = nil
	n.Subtree = nil
	n.Flag = nil

	if st.contains(p) {
		n.Subtree = &domain.SubtreeRef{Path: p}
		n.Flag = &domain.Flag{
			Kind:    domain.FlagCycle,
			Message: fmt.Sprintf("%v: %s already being expanded", domain.ErrCycleDetected, p),
		}
		r.logger.Warn("Subtree cycle", "path", p, "stack", st.paths)
		return &domain.SubtreeError{Path: p, Err: domain.ErrCycleDetected}
	}

	release := st.push(p)
	defer release()

	modTime, err := r.store.Stat(ctx, p)
	if err != nil {
		n.Subtree = &domain.SubtreeRef{Path: p, Missing: errors.Is(err, domain.ErrDocumentNotFound)}
		return r.missing(n, p, err)
	}
	n.Subtree = &domain.SubtreeRef{Path: p, ModTime: modTime}

	sub, err := r.store.Read(ctx, p)
	if err != nil {
		return r.missing(n, p, err)
	}
	if sub == nil || sub.Root == nil {
		return r.missing(n, p, errors.New("document has no root"))
	}

	err = r.expand(ctx, sub.Root, st)
	n.Children = sub.Root.Children
	return err
}

func (r *Resolver) missing(n *domain.Node, p string, cause error) error {
	n.Flag = &domain.Flag{Kind: domain.FlagMissingSubtree, Message: cause.Error()}
	r.logger.Warn("Subtree unavailable", "path", p, "err", cause)
	return &domain.SubtreeError{Path: p, Err: fmt.Errorf("%w: %w", domain.ErrMissingSubtree, cause)}
}

// IsStale reports whether any transclusion below root was expanded from a
// source that has since changed, appeared or disappeared. Nodes never
// expanded count as stale.
func (r *Resolver) IsStale(ctx context.Context, root *domain.Node) bool {
	stale := false
	tree.Walk(root, func(n *domain.Node) bool {
		if stale {
			return false
		}
		if !n.IsSubtree() {
			return true
		}
		if r.changed(ctx, n) {
			stale = true
		}
		return !stale
	})
	return stale
}

func (r *Resolver) changed(ctx context.Context, n *domain.Node) bool {
	ref := n.Subtree
	if ref == nil || ref.Path != Clean(n.Path) {
		return true
	}
	// A cycle stays a cycle until some document on the loop changes, which
	// the enclosing transclusion observes.
	if n.Flag != nil && n.Flag.Kind == domain.FlagCycle {
		return false
	}
	modTime, err := r.store.Stat(ctx, ref.Path)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return !ref.Missing
		}
		r.logger.Warn("Subtree stat failed", "path", ref.Path, "err", err)
		return true
	}
	return ref.Missing || !modTime.Equal(ref.ModTime)
}

// Timed runs Expand and reports its duration, for observability hooks.
func (r *Resolver) Timed(ctx context.Context, hostPath string, doc *domain.Document) (time.Duration, error) {
	start := time.Now()
	err := r.Expand(ctx, hostPath, doc)
	return time.Since(start), err
}
