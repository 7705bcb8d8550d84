package xref

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Mode selects what a search query is compared against.
type Mode string

const (
	// ModeText matches the query as a substring of the node's fields.
	ModeText Mode = "text"
	// ModeID matches the node id exactly.
	ModeID Mode = "id"
)

// Query describes a search.
type Query struct {
	Text          string `json:"text"`
	Mode          Mode   `json:"mode,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	// Focus dims non-matching nodes instead of leaving them untouched.
	Focus bool `json:"focus,omitempty"`
}

// Empty reports whether the query matches nothing by definition.
func (q Query) Empty() bool {
	return strings.TrimSpace(q.Text) == ""
}

// Results are the matching ids in traversal order with a navigation cursor.
// The cursor starts before the first match.
type Results struct {
	IDs    []string
	cursor int
}

// Len returns the number of matches.
func (r *Results) Len() int {
	if r == nil {
		return 0
	}
	return len(r.IDs)
}

// Next advances to the following match, wrapping around at the end.
func (r *Results) Next() (string, bool) {
	if r.Len() == 0 {
		return "", false
	}
	r.cursor = (r.cursor + 1) % len(r.IDs)
	return r.IDs[r.cursor], true
}

// Prev moves to the preceding match, wrapping around at the start.
func (r *Results) Prev() (string, bool) {
	if r.Len() == 0 {
		return "", false
	}
	if r.cursor < 0 {
		r.cursor = 0
	}
	r.cursor = (r.cursor - 1 + len(r.IDs)) % len(r.IDs)
	return r.IDs[r.cursor], true
}

// Current returns the match under the cursor, if navigation has started.
func (r *Results) Current() (string, bool) {
	if r.Len() == 0 || r.cursor < 0 {
		return "", false
	}
	return r.IDs[r.cursor], true
}

// Search tags every node under root with its match state and returns the
// matches. An empty query clears the search tags.
func Search(root *domain.Node, q Query) *Results {
	res := &Results{cursor: -1}
	needle := q.Text
	if !q.CaseSensitive {
		needle = strings.ToLower(needle)
	}
	tree.Walk(root, func(n *domain.Node) bool {
		switch {
		case q.Empty():
			n.Tags.Match = domain.MatchNone
		case matches(n, q, needle):
			n.Tags.Match = domain.MatchHit
			res.IDs = append(res.IDs, n.ID)
		case q.Focus:
			n.Tags.Match = domain.MatchDimmed
		default:
			n.Tags.Match = domain.MatchNone
		}
		return true
	})
	return res
}

func matches(n *domain.Node, q Query, needle string) bool {
	if q.Mode == ModeID {
		return n.ID == strings.TrimSpace(q.Text)
	}
	contains := func(s string) bool {
		if !q.CaseSensitive {
			s = strings.ToLower(s)
		}
		return strings.Contains(s, needle)
	}
	if contains(n.Name) || contains(n.Desc) || contains(n.Path) {
		return true
	}
	for _, v := range n.Input {
		if contains(v) {
			return true
		}
	}
	for _, v := range n.Output {
		if contains(v) {
			return true
		}
	}
	keys := make([]string, 0, len(n.Args))
	for k := range n.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if contains(argText(n.Args[k])) {
			return true
		}
	}
	return false
}

func argText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, argText(item))
		}
		return strings.Join(parts, "\n")
	default:
		return fmt.Sprint(val)
	}
}

// ClearSearch resets the match state of every node under root.
func ClearSearch(root *domain.Node) {
	tree.Walk(root, func(n *domain.Node) bool {
		n.Tags.Match = domain.MatchNone
		return true
	})
}
