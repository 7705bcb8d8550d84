package editor

import (
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/transclusion"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/xref"
)

// Search tags the tree with q and returns the matching ids in traversal
// order. The query stays active across edits until cleared.
func (e *Editor) Search(q xref.Query) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if q.Empty() {
		e.query = nil
		e.results = nil
		xref.ClearSearch(e.doc.Root)
		return nil
	}
	e.query = &q
	e.results = xref.Search(e.doc.Root, q)
	return slices.Clone(e.results.IDs)
}

// Next selects the following search match.
func (e *Editor) Next() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.navigate((*xref.Results).Next)
}

// Prev selects the preceding search match.
func (e *Editor) Prev() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.navigate((*xref.Results).Prev)
}

func (e *Editor) navigate(step func(*xref.Results) (string, bool)) (string, bool) {
	if e.results == nil {
		return "", false
	}
	id, ok := step(e.results)
	if ok {
		e.selected = id
	}
	return id, ok
}

// HighlightVariables tags nodes reading or writing any of names and returns
// the related nodes. An empty list clears the highlight.
func (e *Editor) HighlightVariables(names []string) []xref.Ref {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.vars = slices.DeleteFunc(slices.Clone(names), func(s string) bool { return s == "" })
	return xref.HighlightVariables(e.doc.Root, e.catalog, e.vars)
}

// ClearHighlights drops the active search and variable highlight.
func (e *Editor) ClearHighlights() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.query, e.results, e.vars = nil, nil, nil
	xref.ClearSearch(e.doc.Root)
	xref.ClearVariables(e.doc.Root)
}

// UsedVariables lists the variable names referenced anywhere in the tree.
func (e *Editor) UsedVariables() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return xref.UsedVariables(e.doc.Root, e.catalog)
}

// Select moves the selection to id.
func (e *Editor) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tree.Find(e.doc.Root, id) == nil {
		return &domain.OpError{Op: "select", ID: id, Err: domain.ErrNodeNotFound}
	}
	e.selected = id
	return nil
}

// Selected returns the id of the selected node.
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.selected
}

// Path returns the path the document was opened from.
func (e *Editor) Path() string {
	return e.path
}

// Document returns a copy of the expanded document with its runtime state.
func (e *Editor) Document() *domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	return tree.CloneDocument(e.doc)
}

// View calls fn with the live document under the editor lock. fn must not
// retain or modify it.
func (e *Editor) View(fn func(doc *domain.Document)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn(e.doc)
}

// StorageForm returns the document as it is persisted.
func (e *Editor) StorageForm() *domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	return tree.StorageDocument(e.doc, false)
}

// Inlined returns the document with transcluded content kept under each
// subtree root, for exports that flatten references.
func (e *Editor) Inlined() *domain.Document {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := tree.StorageDocument(e.doc, false)
	doc.Root = tree.Inline(e.doc.Root)
	return doc
}

// Problems reports the diagnostics and flagged nodes of the tree.
func (e *Editor) Problems() []tree.Problem {
	e.mu.Lock()
	defer e.mu.Unlock()

	return tree.Problems(e.doc.Root)
}

// Resolution returns the joined subtree resolution errors of the last expansion.
func (e *Editor) Resolution() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.resolveErr
}

// Rebind rebinds the tree against a new catalog, e.g. after definitions changed.
func (e *Editor) Rebind(catalog ports.Catalog) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.catalog = catalog
	tree.Bind(e.doc.Root, catalog)
	e.reapply()
}

// Dirty reports whether there are changes since the last save.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.history.Dirty()
}

// MarkSaved records the current state as persisted.
func (e *Editor) MarkSaved() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history.MarkSaved()
}

// CanUndo and CanRedo report whether history navigation is possible.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.history.CanUndo()
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.history.CanRedo()
}

// SubtreePaths lists the distinct documents transcluded by the tree.
func (e *Editor) SubtreePaths() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []string
	tree.Walk(e.doc.Root, func(n *domain.Node) bool {
		if n.IsSubtree() {
			if p := transclusion.Clean(n.Path); !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
		return true
	})
	return out
}
