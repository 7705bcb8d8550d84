package tree

import (
	"maps"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// ToStorageForm returns a deep copy of n without runtime state. Children of
// subtree roots are transcluded content and are dropped unless
// includeSubtreeContents is set.
func ToStorageForm(n *domain.Node, includeSubtreeContents bool) *domain.Node {
	if n == nil {
		return nil
	}
	out := &domain.Node{
		ID:       n.ID,
		Name:     n.Name,
		Desc:     n.Desc,
		Debug:    n.Debug,
		Disabled: n.Disabled,
		Args:     cloneArgs(n.Args),
		Input:    slices.Clone(n.Input),
		Output:   slices.Clone(n.Output),
		Path:     n.Path,
	}
	if n.IsSubtree() && !includeSubtreeContents {
		return out
	}
	if len(n.Children) > 0 {
		out.Children = make([]*domain.Node, 0, len(n.Children))
		for _, c := range n.Children {
			out.Children = append(out.Children, ToStorageForm(c, includeSubtreeContents))
		}
	}
	return out
}

// StorageDocument returns doc in storage form.
func StorageDocument(doc *domain.Document, includeSubtreeContents bool) *domain.Document {
	if doc == nil {
		return nil
	}
	return &domain.Document{
		Name:    doc.Name,
		Desc:    doc.Desc,
		Vars:    slices.Clone(doc.Vars),
		Imports: slices.Clone(doc.Imports),
		Group:   slices.Clone(doc.Group),
		Root:    ToStorageForm(doc.Root, includeSubtreeContents),
	}
}

// Clone returns a deep copy of n, runtime state included.
func Clone(n *domain.Node) *domain.Node {
	if n == nil {
		return nil
	}
	out := ToStorageForm(n, false)
	if n.Subtree != nil {
		ref := *n.Subtree
		out.Subtree = &ref
	}
	if n.Flag != nil {
		flag := *n.Flag
		out.Flag = &flag
	}
	out.Diagnostics = slices.Clone(n.Diagnostics)
	out.Tags = n.Tags
	out.Children = nil
	for _, c := range n.Children {
		out.Children = append(out.Children, Clone(c))
	}
	return out
}

// CloneDocument returns a deep copy of doc, runtime state included.
func CloneDocument(doc *domain.Document) *domain.Document {
	if doc == nil {
		return nil
	}
	out := StorageDocument(doc, false)
	out.Root = Clone(doc.Root)
	return out
}

// Collapse drops transcluded children and expansion state below n, turning the
// live tree back into its unexpanded shape.
func Collapse(n *domain.Node) {
	Walk(n, func(c *domain.Node) bool {
		if c.IsSubtree() {
			c.Children = nil
			c.Subtree = nil
			c.Flag = nil
			return false
		}
		return true
	})
}

func cloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneArgs(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	case map[string]string:
		return maps.Clone(val)
	default:
		return val
	}
}

// Inline returns the storage form of n with every successfully expanded
// subtree reference replaced by its content. Flagged references are kept.
func Inline(n *domain.Node) *domain.Node {
	if n == nil {
		return nil
	}
	out := ToStorageForm(n, false)
	if n.IsSubtree() {
		if n.Flag != nil || n.Subtree == nil {
			return out
		}
		out.Path = ""
	}
	out.Children = nil
	for _, c := range n.Children {
		out.Children = append(out.Children, Inline(c))
	}
	return out
}
