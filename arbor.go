package arbor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/transclusion"
	"github.com/aretw0/arbor/pkg/tree"
)

// Workspace is the high-level entry point for the Arbor library.
// It owns the document store, the node catalog, the shared clipboard and
// every open editor. Create it with New and release it with Close.
type Workspace struct {
	mu      sync.Mutex
	editors map[string]*editor.Editor

	store     ports.DocumentStore
	catalog   ports.Catalog
	clipboard ports.Clipboard
	locker    ports.DistributedLocker
	sessions  *session.Manager
	resolver  *transclusion.Resolver
	hooks     domain.Hooks
	logger    *slog.Logger

	defaultNode  string
	rootNode     string
	historyLimit int

	stopWatch context.CancelFunc

	// Name is the base name of the project directory, if any.
	Name string
}

// Option defines a functional option for configuring the Workspace.
type Option func(*Workspace)

// WithStore injects a custom DocumentStore, bypassing the default filesystem store.
func WithStore(store ports.DocumentStore) Option {
	return func(w *Workspace) {
		w.store = store
	}
}

// WithCatalog sets the node definition catalog. Defaults to the builtin nodes.
func WithCatalog(catalog ports.Catalog) Option {
	return func(w *Workspace) {
		w.catalog = catalog
	}
}

// WithClipboard replaces the in-process clipboard shared by all editors.
func WithClipboard(clipboard ports.Clipboard) Option {
	return func(w *Workspace) {
		w.clipboard = clipboard
	}
}

// WithLocker serializes saves across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(w *Workspace) {
		w.locker = locker
	}
}

// WithHooks registers observability hooks, applied to every editor.
func WithHooks(hooks domain.Hooks) Option {
	return func(w *Workspace) {
		w.hooks = w.hooks.Merge(hooks)
	}
}

// WithLogger sets a custom structured logger for the workspace.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithHistoryLimit bounds the undo history of every editor.
func WithHistoryLimit(n int) Option {
	return func(w *Workspace) {
		w.historyLimit = n
	}
}

// WithDefaultNode sets the type name of inserted nodes.
func WithDefaultNode(name string) Option {
	return func(w *Workspace) {
		w.defaultNode = name
	}
}

// WithRootNode sets the type name of the root of created documents.
func WithRootNode(name string) Option {
	return func(w *Workspace) {
		w.rootNode = name
	}
}

// New initializes a Workspace.
// By default documents are read from and written to the directory dir.
// If WithStore is provided, dir may be empty and only names the workspace.
func New(dir string, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		editors:  make(map[string]*editor.Editor),
		rootNode: domain.DefaultRootName,
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.store == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom store is provided")
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		w.store = file.New(abs)
		w.Name = filepath.Base(abs)
	} else if dir != "" {
		w.Name = filepath.Base(dir)
	}

	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.Name != "" {
		w.logger = w.logger.With("workspace", w.Name)
	}
	if w.catalog == nil {
		w.catalog = memory.NewCatalog(memory.Builtins()...)
	}
	if w.clipboard == nil {
		w.clipboard = memory.NewClipboard()
	}

	sessionOpts := []session.Option{session.WithLogger(w.logger)}
	if w.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(w.locker))
	}
	w.sessions = session.NewManager(w.store, sessionOpts...)
	w.resolver = transclusion.New(w.store, transclusion.WithLogger(w.logger))
	return w, nil
}

func (w *Workspace) editorOptions() []editor.Option {
	return []editor.Option{
		editor.WithLogger(w.logger),
		editor.WithCatalog(w.catalog),
		editor.WithClipboard(w.clipboard),
		editor.WithHooks(w.hooks),
		editor.WithHistoryLimit(w.historyLimit),
		editor.WithDefaultNode(w.defaultNode),
	}
}

func (w *Workspace) event(t domain.EventType, path string) *domain.EventBase {
	return &domain.EventBase{Timestamp: time.Now(), Type: t, Document: path}
}

// Open returns the editor for path, loading the document on first use.
func (w *Workspace) Open(ctx context.Context, path string) (*editor.Editor, error) {
	path = transclusion.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok := w.editors[path]; ok {
		return e, nil
	}

	doc, err := w.sessions.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return w.attach(ctx, path, doc)
}

// attach creates and registers an editor. Must be called under lock.
func (w *Workspace) attach(ctx context.Context, path string, doc *domain.Document) (*editor.Editor, error) {
	e, err := editor.New(ctx, path, doc, w.resolver, w.editorOptions()...)
	if err != nil {
		return nil, err
	}
	if res := e.Resolution(); res != nil {
		w.logger.Warn("Document opened with unresolved subtrees", "document", path, "err", res)
	}
	w.editors[path] = e
	w.logger.Debug("Document opened", "document", path)
	if w.hooks.OnOpen != nil {
		w.hooks.OnOpen(ctx, w.event(domain.EventOpen, path))
	}
	return e, nil
}

// Create writes a new document holding a single root at path and opens it.
// It fails with domain.ErrDocumentExists if path is taken.
func (w *Workspace) Create(ctx context.Context, path, name string) (*editor.Editor, error) {
	path = transclusion.Clean(path)
	if name == "" {
		name = documentName(path)
	}
	doc := domain.NewDocument(name)
	doc.Root.Name = w.rootNode

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.editors[path]; ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDocumentExists)
	}
	if err := w.sessions.Create(ctx, path, doc); err != nil {
		return nil, err
	}
	return w.attach(ctx, path, doc)
}

// Editor returns the editor of an open document.
func (w *Workspace) Editor(path string) (*editor.Editor, error) {
	path = transclusion.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.editors[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrDocumentNotOpen)
	}
	return e, nil
}

// Save persists the storage form of an open document and clears its dirty flag.
func (w *Workspace) Save(ctx context.Context, path string) error {
	e, err := w.Editor(path)
	if err != nil {
		return err
	}
	if err := w.sessions.Save(ctx, e.Path(), e.StorageForm()); err != nil {
		return fmt.Errorf("failed to save %s: %w", e.Path(), err)
	}
	e.MarkSaved()
	w.logger.Info("Document saved", "document", e.Path())
	if w.hooks.OnChange != nil {
		w.hooks.OnChange(ctx, &domain.ChangeEvent{
			EventBase: *w.event(domain.EventSave, e.Path()),
			Op:        "save",
			Selected:  e.Selected(),
		})
	}
	return nil
}

// Close discards the editor of path. Unsaved changes are lost.
func (w *Workspace) Close(ctx context.Context, path string) error {
	path = transclusion.Clean(path)
	w.mu.Lock()
	e, ok := w.editors[path]
	delete(w.editors, path)
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("%s: %w", path, domain.ErrDocumentNotOpen)
	}
	if e.Dirty() {
		w.logger.Warn("Closing document with unsaved changes", "document", path)
	}
	if w.hooks.OnClose != nil {
		w.hooks.OnClose(ctx, w.event(domain.EventClose, path))
	}
	return nil
}

// Shutdown stops catalog watching and closes every open document.
func (w *Workspace) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if w.stopWatch != nil {
		w.stopWatch()
		w.stopWatch = nil
	}
	paths := w.openPaths()
	w.mu.Unlock()

	var errs []error
	for _, p := range paths {
		if err := w.Close(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Documents lists every document in the store.
func (w *Workspace) Documents(ctx context.Context) ([]string, error) {
	return w.sessions.List(ctx)
}

// OpenDocuments returns the paths of open documents, sorted.
func (w *Workspace) OpenDocuments() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.openPaths()
}

func (w *Workspace) openPaths() []string {
	paths := make([]string, 0, len(w.editors))
	for p := range w.editors {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Validate binds a document against the catalog and type-checks its
// arguments without opening an editor.
func (w *Workspace) Validate(ctx context.Context, path string) ([]tree.Problem, error) {
	path = transclusion.Clean(path)
	doc, err := w.sessions.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	resErr := w.resolver.Expand(ctx, path, doc)
	tree.Renumber(doc.Root)
	problems := tree.Validate(doc.Root, w.catalog)
	problems = append(problems, schema.CheckTree(doc.Root, w.catalog)...)
	return problems, resErr
}

// ReloadStale re-expands every open document whose subtrees changed on disk.
// It returns the paths that were reloaded.
func (w *Workspace) ReloadStale(ctx context.Context) ([]string, error) {
	w.mu.Lock()
	editors := make([]*editor.Editor, 0, len(w.editors))
	for _, p := range w.openPaths() {
		editors = append(editors, w.editors[p])
	}
	w.mu.Unlock()

	var (
		reloaded []string
		errs     []error
	)
	for _, e := range editors {
		ok, err := e.ReloadIfStale(ctx)
		if ok {
			reloaded = append(reloaded, e.Path())
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reloaded, errors.Join(errs...)
}

// Watch rebinds every open document whenever the catalog reports a change,
// then calls each onChange. Returns error if the catalog does not support
// watching.
func (w *Workspace) Watch(ctx context.Context, onChange ...func()) error {
	watchable, ok := w.catalog.(ports.Watchable)
	if !ok {
		return fmt.Errorf("current catalog does not support watching")
	}
	ctx, cancel := context.WithCancel(ctx)
	ch, err := watchable.Watch(ctx)
	if err != nil {
		cancel()
		return err
	}

	w.mu.Lock()
	if w.stopWatch != nil {
		w.stopWatch()
	}
	w.stopWatch = cancel
	w.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				w.rebind()
				for _, fn := range onChange {
					fn()
				}
			}
		}
	}()
	return nil
}

func (w *Workspace) rebind() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, e := range w.editors {
		e.Rebind(w.catalog)
	}
	w.logger.Debug("Catalog changed, documents rebound", "open", len(w.editors))
}

// Catalog returns the node definition catalog.
func (w *Workspace) Catalog() ports.Catalog {
	return w.catalog
}

// Store returns the document store.
func (w *Workspace) Store() ports.DocumentStore {
	return w.store
}

// Clipboard returns the clipboard shared by every editor.
func (w *Workspace) Clipboard() ports.Clipboard {
	return w.clipboard
}

// Resolver returns the transclusion resolver used by every editor.
func (w *Workspace) Resolver() *transclusion.Resolver {
	return w.resolver
}

func documentName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
