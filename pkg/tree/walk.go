package tree

import "github.com/aretw0/arbor/pkg/domain"

// Walk visits n and its descendants in preorder. Returning false from fn stops
// the descent below the current node but not the traversal of its siblings.
func Walk(n *domain.Node, fn func(n *domain.Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// Find returns the node carrying id, or nil.
func Find(root *domain.Node, id string) *domain.Node {
	path := PathTo(root, id)
	if len(path) == 0 {
		return nil
	}
	return path[len(path)-1]
}

// PathTo returns the chain of nodes from root down to the node carrying id,
// both ends included. It is nil when no node matches.
func PathTo(root *domain.Node, id string) []*domain.Node {
	if root == nil {
		return nil
	}
	if root.ID == id {
		return []*domain.Node{root}
	}
	for _, c := range root.Children {
		if sub := PathTo(c, id); sub != nil {
			return append([]*domain.Node{root}, sub...)
		}
	}
	return nil
}

// PathToNode is PathTo keyed by node identity rather than id.
func PathToNode(root, target *domain.Node) []*domain.Node {
	if root == nil || target == nil {
		return nil
	}
	if root == target {
		return []*domain.Node{root}
	}
	for _, c := range root.Children {
		if sub := PathToNode(c, target); sub != nil {
			return append([]*domain.Node{root}, sub...)
		}
	}
	return nil
}

// Parent returns the parent of the node carrying id and the node's index in
// the parent's children. The root and unknown ids yield (nil, -1).
func Parent(root *domain.Node, id string) (*domain.Node, int) {
	path := PathTo(root, id)
	if len(path) < 2 {
		return nil, -1
	}
	parent, child := path[len(path)-2], path[len(path)-1]
	return parent, IndexOf(parent, child)
}

// IndexOf returns the position of child among parent's children, or -1.
func IndexOf(parent, child *domain.Node) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// IsDescendant reports whether the node carrying id lies strictly below n.
func IsDescendant(n *domain.Node, id string) bool {
	for _, c := range n.Children {
		if Find(c, id) != nil {
			return true
		}
	}
	return false
}

// InSubtree reports whether the last node of path is transcluded content,
// i.e. one of its strict ancestors is a subtree root.
func InSubtree(path []*domain.Node) bool {
	if len(path) == 0 {
		return false
	}
	for _, n := range path[:len(path)-1] {
		if n.IsSubtree() {
			return true
		}
	}
	return false
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n *domain.Node) int {
	total := 0
	Walk(n, func(*domain.Node) bool {
		total++
		return true
	})
	return total
}
