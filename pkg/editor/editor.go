package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/history"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/transclusion"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/xref"
)

// Editor is the single writer of one open document.
type Editor struct {
	mu sync.Mutex

	path      string
	doc       *domain.Document
	resolver  *transclusion.Resolver
	catalog   ports.Catalog
	clipboard ports.Clipboard
	history   *history.Manager
	hooks     domain.Hooks
	logger    *slog.Logger

	defaultNode  string
	historyLimit int

	selected   string
	query      *xref.Query
	results    *xref.Results
	vars       []string
	resolveErr error
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger configures a logger for the Editor.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithCatalog binds nodes against catalog. Without one no diagnostics are produced.
func WithCatalog(catalog ports.Catalog) Option {
	return func(e *Editor) {
		e.catalog = catalog
	}
}

// WithClipboard replaces the default in-process clipboard.
func WithClipboard(clipboard ports.Clipboard) Option {
	return func(e *Editor) {
		e.clipboard = clipboard
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.Hooks) Option {
	return func(e *Editor) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithHistoryLimit bounds the undo history.
func WithHistoryLimit(n int) Option {
	return func(e *Editor) {
		e.historyLimit = n
	}
}

// WithDefaultNode sets the type name given to inserted nodes.
func WithDefaultNode(name string) Option {
	return func(e *Editor) {
		if name != "" {
			e.defaultNode = name
		}
	}
}

// New opens doc, loaded from path, for editing. Subtree references are
// expanded through resolver; resolution problems do not fail New and are
// available from Resolution.
func New(ctx context.Context, path string, doc *domain.Document, resolver *transclusion.Resolver, opts ...Option) (*Editor, error) {
	if doc == nil || doc.Root == nil {
		return nil, fmt.Errorf("open %s: %w: document has no root", path, domain.ErrSerialization)
	}
	e := &Editor{
		path:        path,
		doc:         tree.StorageDocument(doc, false),
		resolver:    resolver,
		clipboard:   memory.NewClipboard(),
		logger:      logging.NewNop(),
		defaultNode: domain.DefaultNodeName,
		selected:    domain.RootID,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("document", path)

	e.expand(ctx)
	snap, err := history.Snapshot(e.doc)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	e.history = history.New(snap, history.WithLimit(e.historyLimit))
	return e, nil
}

// expand resolves every transclusion, renumbers and binds. Must be called under lock.
func (e *Editor) expand(ctx context.Context) {
	var (
		elapsed time.Duration
		err     error
	)
	if e.resolver != nil {
		elapsed, err = e.resolver.Timed(ctx, e.path, e.doc)
	}
	e.resolveErr = err
	tree.Renumber(e.doc.Root)
	tree.Bind(e.doc.Root, e.catalog)
	if err != nil {
		e.logger.Warn("Expansion finished with problems", "err", err)
	}
	if e.hooks.OnExpand != nil {
		e.hooks.OnExpand(ctx, &domain.ExpandEvent{
			EventBase: e.base(domain.EventExpand),
			Duration:  elapsed,
			Problems:  len(tree.Problems(e.doc.Root)),
		})
	}
}

// expandNode resolves the references at and below a pasted or re-pointed node.
func (e *Editor) expandNode(ctx context.Context, n *domain.Node) {
	if e.resolver == nil {
		return
	}
	if err := e.resolver.ExpandNode(ctx, e.path, n); err != nil {
		e.resolveErr = errors.Join(e.resolveErr, err)
		e.logger.Warn("Subtree expansion failed", "node", n.Name, "err", err)
	}
}

func (e *Editor) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, Document: e.path}
}

func (e *Editor) emit(ctx context.Context, t domain.EventType, op string, err error) {
	if e.hooks.OnChange == nil {
		return
	}
	e.hooks.OnChange(ctx, &domain.ChangeEvent{
		EventBase: e.base(t),
		Op:        op,
		Selected:  e.selected,
		Err:       err,
	})
}

func (e *Editor) reject(ctx context.Context, op string, err error) error {
	e.logger.Debug("Operation rejected", "op", op, "err", err)
	e.emit(ctx, domain.EventReject, op, err)
	return err
}

// mutate runs fn against the live root and commits on success. fn returns
// the node to select afterwards; nil keeps the current selection when it
// survived the change.
func (e *Editor) mutate(ctx context.Context, op string, fn func(root *domain.Node) (*domain.Node, error)) error {
	prev := tree.Find(e.doc.Root, e.selected)
	focus, err := fn(e.doc.Root)
	if err != nil {
		return e.reject(ctx, op, err)
	}
	if focus == nil && tree.PathToNode(e.doc.Root, prev) != nil {
		focus = prev
	}
	return e.commit(ctx, op, focus)
}

func (e *Editor) commit(ctx context.Context, op string, focus *domain.Node) error {
	tree.Renumber(e.doc.Root)
	tree.Bind(e.doc.Root, e.catalog)
	if focus != nil {
		e.selected = focus.ID
	} else {
		e.selected = domain.RootID
	}
	e.reapply()

	snap, err := history.Snapshot(e.doc)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !e.history.Commit(op, snap) {
		e.logger.Debug("Edit left the document unchanged", "op", op)
		return nil
	}
	e.logger.Debug("Committed", "op", op, "selected", e.selected)
	e.emit(ctx, domain.EventChange, op, nil)
	return nil
}

// reapply recomputes the active search and variable highlight.
func (e *Editor) reapply() {
	if e.query != nil {
		e.results = xref.Search(e.doc.Root, *e.query)
	}
	if len(e.vars) > 0 {
		xref.HighlightVariables(e.doc.Root, e.catalog, e.vars)
	}
}

// restore replaces the live document with a history snapshot.
func (e *Editor) restore(ctx context.Context, snap []byte, t domain.EventType) error {
	doc, err := history.Restore(snap)
	if err != nil {
		return err
	}
	selected := e.selected
	e.doc = doc
	e.expand(ctx)
	if tree.Find(e.doc.Root, selected) == nil {
		selected = domain.RootID
	}
	e.selected = selected
	e.reapply()
	e.emit(ctx, t, string(t), nil)
	return nil
}
