package tree

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Problem is one flattened finding about a node, used by reports.
type Problem struct {
	NodeID  string `json:"node_id"`
	Name    string `json:"name"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	return fmt.Sprintf("node %s (%s): %s", p.NodeID, p.Name, p.Message)
}

// Problems collects the flags and diagnostics of a bound, expanded tree in
// preorder. Content below a subtree root is reported by its own document.
func Problems(root *domain.Node) []Problem {
	var out []Problem
	Walk(root, func(n *domain.Node) bool {
		if n.Flag != nil {
			out = append(out, Problem{NodeID: n.ID, Name: n.Name, Code: string(n.Flag.Kind), Message: n.Flag.Message})
		}
		for _, d := range n.Diagnostics {
			out = append(out, Problem{NodeID: n.ID, Name: n.Name, Code: string(d.Code), Message: d.Message})
		}
		return !n.IsSubtree()
	})
	return out
}

// Validate binds root against catalog and returns the resulting problems.
func Validate(root *domain.Node, catalog ports.Catalog) []Problem {
	Bind(root, catalog)
	return Problems(root)
}
