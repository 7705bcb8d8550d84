package xref

import (
	"regexp"
	"slices"
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
)

var (
	quoted = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	// An identifier not preceded by a member access dot.
	ident = regexp.MustCompile(`(?:^|[^.\w])([A-Za-z_]\w*)`)
)

// Identifiers returns the free identifiers referenced by an expression,
// ignoring string literals and member names.
func Identifiers(expr string) []string {
	expr = quoted.ReplaceAllString(expr, " ")
	var out []string
	for _, m := range ident.FindAllStringSubmatch(expr, -1) {
		if !slices.Contains(out, m[1]) {
			out = append(out, m[1])
		}
	}
	return out
}

// Ref is one node's access to the highlighted variables.
type Ref struct {
	NodeID string        `json:"id"`
	Name   string        `json:"name"`
	Access domain.VarRef `json:"-"`
	Kind   string        `json:"access"`
}

// Access computes how n uses any of the variables in names. Expression and
// code arguments count as reads when the catalog declares them so.
func Access(n *domain.Node, catalog ports.Catalog, names []string) domain.VarRef {
	want := func(v string) bool { return v != "" && slices.Contains(names, v) }
	read := slices.ContainsFunc(n.Input, want)
	write := slices.ContainsFunc(n.Output, want)
	if !read && catalog != nil {
		def := catalog.Lookup(n.Name)
		for _, a := range def.Args {
			if !a.IsExpr() {
				continue
			}
			if slices.ContainsFunc(exprs(n.Args[a.Name]), func(e string) bool {
				return slices.ContainsFunc(Identifiers(e), want)
			}) {
				read = true
				break
			}
		}
	}
	switch {
	case read && write:
		return domain.VarReadWrite
	case read:
		return domain.VarRead
	case write:
		return domain.VarWrite
	}
	return domain.VarUnrelated
}

func exprs(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []string:
		return val
	case []any:
		var out []string
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// HighlightVariables tags every node under root with its access to names and
// returns the related nodes in traversal order. Nodes that neither read nor
// write are tagged unrelated. An empty names list clears the tags.
func HighlightVariables(root *domain.Node, catalog ports.Catalog, names []string) []Ref {
	var refs []Ref
	tree.Walk(root, func(n *domain.Node) bool {
		if len(names) == 0 {
			n.Tags.Var = domain.VarNone
			return true
		}
		n.Tags.Var = Access(n, catalog, names)
		if n.Tags.Var != domain.VarUnrelated {
			refs = append(refs, Ref{NodeID: n.ID, Name: n.Name, Access: n.Tags.Var, Kind: n.Tags.Var.String()})
		}
		return true
	})
	return refs
}

// ClearVariables resets the variable state of every node under root.
func ClearVariables(root *domain.Node) {
	HighlightVariables(root, nil, nil)
}

// UsedVariables lists every variable name read or written under root,
// sorted. Expression arguments contribute their free identifiers.
func UsedVariables(root *domain.Node, catalog ports.Catalog) []string {
	seen := map[string]bool{}
	tree.Walk(root, func(n *domain.Node) bool {
		for _, v := range slices.Concat(n.Input, n.Output) {
			if v != "" {
				seen[v] = true
			}
		}
		if catalog == nil {
			return true
		}
		for _, a := range catalog.Lookup(n.Name).Args {
			if !a.IsExpr() {
				continue
			}
			for _, e := range exprs(n.Args[a.Name]) {
				for _, id := range Identifiers(e) {
					seen[id] = true
				}
			}
		}
		return true
	})
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
