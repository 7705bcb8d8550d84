package tree

import (
	"strconv"

	"github.com/aretw0/arbor/pkg/domain"
)

// Renumber assigns ids by preorder traversal of the expanded tree, starting at
// "1" for root, and returns the next free id. Running it twice on an unchanged
// tree is a no-op.
func Renumber(root *domain.Node) int {
	next := 1
	Walk(root, func(n *domain.Node) bool {
		n.ID = strconv.Itoa(next)
		next++
		return true
	})
	return next
}
