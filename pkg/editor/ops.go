package editor

import (
	"context"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/edit"
	"github.com/aretw0/arbor/pkg/tree"
)

// Insert appends a new default-typed node under targetID and returns its id.
func (e *Editor) Insert(ctx context.Context, targetID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := &domain.Node{Name: e.defaultNode}
	err := e.mutate(ctx, "insert", func(root *domain.Node) (*domain.Node, error) {
		return n, edit.Insert(root, targetID, n)
	})
	if err != nil {
		return "", err
	}
	return n.ID, nil
}

// Delete removes the node carrying id and selects its parent.
func (e *Editor) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mutate(ctx, "delete", func(root *domain.Node) (*domain.Node, error) {
		return edit.Delete(root, id)
	})
}

// Copy writes the storage form of the node carrying id to the clipboard.
func (e *Editor) Copy(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := edit.Copy(e.doc.Root, id)
	if err != nil {
		return e.reject(ctx, "copy", err)
	}
	return e.clipboard.Write(ctx, data)
}

// Paste appends the clipboard content under targetID and returns the id of
// the pasted node. A corrupt clipboard aborts only the paste.
func (e *Editor) Paste(ctx context.Context, targetID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.clipboard.Read(ctx)
	if err != nil {
		return "", e.reject(ctx, "paste", err)
	}
	var pasted *domain.Node
	err = e.mutate(ctx, "paste", func(root *domain.Node) (*domain.Node, error) {
		n, err := edit.Paste(root, targetID, data)
		if err != nil {
			return nil, err
		}
		e.expandNode(ctx, n)
		pasted = n
		return n, nil
	})
	if err != nil {
		return "", err
	}
	return pasted.ID, nil
}

// Replace overwrites the node carrying targetID with the clipboard content.
func (e *Editor) Replace(ctx context.Context, targetID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := e.clipboard.Read(ctx)
	if err != nil {
		return e.reject(ctx, "replace", err)
	}
	return e.mutate(ctx, "replace", func(root *domain.Node) (*domain.Node, error) {
		n, err := edit.Replace(root, targetID, data)
		if err != nil {
			return nil, err
		}
		e.expandNode(ctx, n)
		return n, nil
	})
}

// Move reparents srcID relative to dstID.
func (e *Editor) Move(ctx context.Context, srcID, dstID string, zone edit.Zone) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mutate(ctx, "move", func(root *domain.Node) (*domain.Node, error) {
		src := tree.Find(root, srcID)
		return src, edit.Move(root, srcID, dstID, zone)
	})
}

// Drop is Move with the zone derived from the pointer position inside the
// target's bounding box.
func (e *Editor) Drop(ctx context.Context, srcID, dstID string, box edit.Rect, x, y float64) (edit.Zone, error) {
	zone := edit.ZoneAt(box, x, y)
	return zone, e.Move(ctx, srcID, dstID, zone)
}

// UpdateNode edits the fields of the node carrying id through fn. Its id and
// children are kept; a changed path is expanded again. An edit that leaves
// the node unchanged does not grow the history.
func (e *Editor) UpdateNode(ctx context.Context, id string, fn func(n *domain.Node)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mutate(ctx, "update", func(root *domain.Node) (*domain.Node, error) {
		ref := ""
		if n := tree.Find(root, id); n != nil {
			ref = n.Path
		}
		n, err := edit.Update(root, id, fn)
		if err != nil {
			return nil, err
		}
		if n.Path != ref {
			e.expandNode(ctx, n)
		}
		return n, nil
	})
}

// UpdateDocument edits the document metadata through fn. The root cannot be
// swapped.
func (e *Editor) UpdateDocument(ctx context.Context, fn func(doc *domain.Document)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.mutate(ctx, "update_document", func(root *domain.Node) (*domain.Node, error) {
		fn(e.doc)
		e.doc.Root = root
		e.doc.Vars = slices.DeleteFunc(e.doc.Vars, func(v domain.Variable) bool { return v.Name == "" })
		return nil, nil
	})
}

// Undo restores the previous snapshot.
func (e *Editor) Undo(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.history.Undo()
	if err != nil {
		return e.reject(ctx, "undo", err)
	}
	return e.restore(ctx, snap, domain.EventUndo)
}

// Redo re-applies the next snapshot.
func (e *Editor) Redo(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.history.Redo()
	if err != nil {
		return e.reject(ctx, "redo", err)
	}
	return e.restore(ctx, snap, domain.EventRedo)
}

// Reload re-expands every subtree reference from the current sources while
// keeping local edits. Only the expansion changes, so history is untouched.
func (e *Editor) Reload(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	selected := e.selected
	tree.Collapse(e.doc.Root)
	e.expand(ctx)
	if tree.Find(e.doc.Root, selected) == nil {
		selected = domain.RootID
	}
	e.selected = selected
	e.reapply()
	e.emit(ctx, domain.EventChange, "reload", nil)
	return e.resolveErr
}

// ReloadIfStale reloads when IsStale reports a changed source.
func (e *Editor) ReloadIfStale(ctx context.Context) (bool, error) {
	if !e.IsStale(ctx) {
		return false, nil
	}
	return true, e.Reload(ctx)
}

// IsStale reports whether any transcluded source changed since expansion.
func (e *Editor) IsStale(ctx context.Context) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.resolver == nil {
		return false
	}
	return e.resolver.IsStale(ctx, e.doc.Root)
}
