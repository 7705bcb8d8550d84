package edit

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

func reject(op, id string, err error) error {
	return &domain.OpError{Op: op, ID: id, Err: err}
}

// locate resolves id to its root path and applies the interior-of-subtree guard.
func locate(root *domain.Node, op, id string) ([]*domain.Node, error) {
	path := tree.PathTo(root, id)
	if path == nil {
		return nil, reject(op, id, domain.ErrNodeNotFound)
	}
	if tree.InSubtree(path) {
		return nil, reject(op, id, fmt.Errorf("%w: node belongs to subtree %q", domain.ErrInvalidTarget, owner(path).Path))
	}
	return path, nil
}

// owner returns the outermost subtree root above the last node of path.
func owner(path []*domain.Node) *domain.Node {
	for _, n := range path[:len(path)-1] {
		if n.IsSubtree() {
			return n
		}
	}
	return nil
}

// parentable resolves a node that is about to receive children.
func parentable(root *domain.Node, op, id string) (*domain.Node, error) {
	path, err := locate(root, op, id)
	if err != nil {
		return nil, err
	}
	target := path[len(path)-1]
	if target.IsSubtree() {
		return nil, reject(op, id, fmt.Errorf("%w: children of %q are transcluded", domain.ErrInvalidTarget, target.Path))
	}
	return target, nil
}

// Insert appends child as the last child of the node carrying targetID.
func Insert(root *domain.Node, targetID string, child *domain.Node) error {
	target, err := parentable(root, "insert", targetID)
	if err != nil {
		return err
	}
	target.Children = append(target.Children, child)
	return nil
}

// Delete detaches the node carrying id from its parent and returns the parent.
func Delete(root *domain.Node, id string) (*domain.Node, error) {
	path, err := locate(root, "delete", id)
	if err != nil {
		return nil, err
	}
	if len(path) == 1 {
		return nil, reject("delete", id, fmt.Errorf("%w: cannot delete the root", domain.ErrInvalidTarget))
	}
	parent, node := path[len(path)-2], path[len(path)-1]
	detach(parent, node)
	return parent, nil
}

// Copy serializes the storage form of the node carrying id. Copying is
// read-only and allowed anywhere, including inside subtrees.
func Copy(root *domain.Node, id string) ([]byte, error) {
	n := tree.Find(root, id)
	if n == nil {
		return nil, reject("copy", id, domain.ErrNodeNotFound)
	}
	data, err := json.Marshal(tree.ToStorageForm(n, false))
	if err != nil {
		return nil, reject("copy", id, fmt.Errorf("%w: %v", domain.ErrSerialization, err))
	}
	return data, nil
}

// Decode parses a clipboard payload into a node.
func Decode(data []byte) (*domain.Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty payload", domain.ErrSerialization)
	}
	var n *domain.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	if n == nil || n.Name == "" {
		return nil, fmt.Errorf("%w: payload is not a node", domain.ErrSerialization)
	}
	// Pasted content is taken in storage form: transcluded children are regenerated.
	return tree.ToStorageForm(n, false), nil
}

// Paste decodes data and appends it as the last child of targetID.
// It returns the inserted node.
func Paste(root *domain.Node, targetID string, data []byte) (*domain.Node, error) {
	target, err := parentable(root, "paste", targetID)
	if err != nil {
		return nil, err
	}
	n, err := Decode(data)
	if err != nil {
		return nil, reject("paste", targetID, err)
	}
	target.Children = append(target.Children, n)
	return n, nil
}

// Replace overwrites the fields of targetID with the decoded node, keeping
// its position in the tree. It returns the replaced node.
func Replace(root *domain.Node, targetID string, data []byte) (*domain.Node, error) {
	path, err := locate(root, "replace", targetID)
	if err != nil {
		return nil, err
	}
	if len(path) == 1 {
		return nil, reject("replace", targetID, fmt.Errorf("%w: cannot replace the root", domain.ErrInvalidTarget))
	}
	n, err := Decode(data)
	if err != nil {
		return nil, reject("replace", targetID, err)
	}
	target := path[len(path)-1]
	id := target.ID
	*target = *n
	target.ID = id
	return target, nil
}

// Update applies fn to the node carrying id. The id and children are
// restored afterwards; changing the path drops transcluded content so the
// caller can expand the new reference. It returns the updated node.
func Update(root *domain.Node, id string, fn func(n *domain.Node)) (*domain.Node, error) {
	path, err := locate(root, "update", id)
	if err != nil {
		return nil, err
	}
	target := path[len(path)-1]
	children, ref := target.Children, target.Path
	fn(target)
	target.ID = id
	target.Children = children
	if target.Path != ref {
		target.Children = nil
		target.Subtree = nil
		target.Flag = nil
	}
	return target, nil
}

func detach(parent, child *domain.Node) int {
	idx := tree.IndexOf(parent, child)
	if idx >= 0 {
		parent.Children = append(parent.Children[:idx:idx], parent.Children[idx+1:]...)
	}
	return idx
}

func insertAt(parent *domain.Node, idx int, child *domain.Node) {
	if idx < 0 || idx > len(parent.Children) {
		idx = len(parent.Children)
	}
	parent.Children = append(parent.Children[:idx:idx], append([]*domain.Node{child}, parent.Children[idx:]...)...)
}
