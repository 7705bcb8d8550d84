package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/muesli/termenv"
)

// TreeOption configures RenderTree.
type TreeOption func(*treeRenderer)

// WithProfile sets the color profile. The default is termenv.Ascii, which
// renders plain text.
func WithProfile(p termenv.Profile) TreeOption {
	return func(r *treeRenderer) {
		r.profile = p
	}
}

// WithSelected marks the node carrying id.
func WithSelected(id string) TreeOption {
	return func(r *treeRenderer) {
		r.selected = id
	}
}

// WithArgs prints the arguments and ports of every node.
func WithArgs(show bool) TreeOption {
	return func(r *treeRenderer) {
		r.args = show
	}
}

type treeRenderer struct {
	profile  termenv.Profile
	catalog  ports.Catalog
	selected string
	args     bool
	sb       strings.Builder
}

// RenderTree draws the tree under root as an indented outline. Search and
// variable tags, flags, and diagnostics are rendered inline.
func RenderTree(root *domain.Node, catalog ports.Catalog, opts ...TreeOption) string {
	r := &treeRenderer{profile: termenv.Ascii, catalog: catalog}
	for _, opt := range opts {
		opt(r)
	}
	if root == nil {
		return ""
	}
	r.line(root, "", "", false)
	r.children(root, "", false)
	return r.sb.String()
}

func (r *treeRenderer) children(n *domain.Node, indent string, transcluded bool) {
	inner := transcluded || n.IsSubtree()
	for i, c := range n.Children {
		last := i == len(n.Children)-1
		branch, next := "├── ", "│   "
		if last {
			branch, next = "└── ", "    "
		}
		r.line(c, indent, branch, inner)
		r.children(c, indent+next, inner)
	}
}

func (r *treeRenderer) line(n *domain.Node, indent, branch string, transcluded bool) {
	p := r.profile
	r.sb.WriteString(p.String(indent + branch).Faint().String())

	id := p.String(n.ID).Faint()
	name := p.String(n.Name).Bold()
	switch {
	case n.Flag != nil:
		name = name.Foreground(p.Color("#ef4444"))
	case r.catalog != nil && r.catalog.Lookup(n.Name).Unknown:
		name = name.Foreground(p.Color("#f97316"))
	case transcluded:
		name = p.String(n.Name).Italic().Foreground(p.Color("#94a3b8"))
	}
	if n.Disabled {
		name = name.CrossOut()
	}
	if n.Tags.Match == domain.MatchHit {
		name = name.Background(p.Color("#facc15")).Foreground(p.Color("#000000"))
	} else if n.Tags.Dimmed() {
		name = p.String(n.Name).Faint()
	}
	fmt.Fprintf(&r.sb, "%s %s", id, name)

	if n.Tags.Match == domain.MatchHit {
		r.sb.WriteString(" *")
	}
	if v := varMark(n.Tags.Var); v != "" {
		r.sb.WriteString(" " + p.String(v).Foreground(p.Color(varColor(n.Tags.Var))).String())
	}
	if n.IsSubtree() {
		r.sb.WriteString(p.String(" -> " + n.Path).Foreground(p.Color("#38bdf8")).String())
	}
	if r.args {
		r.sb.WriteString(p.String(details(n)).Faint().String())
	}
	if n.Flag != nil {
		r.sb.WriteString(p.String(fmt.Sprintf(" ! %s", n.Flag.Message)).Foreground(p.Color("#ef4444")).String())
	}
	for _, d := range n.Diagnostics {
		r.sb.WriteString(p.String(fmt.Sprintf(" (%s: %s)", d.Code, d.Message)).Foreground(p.Color("#f97316")).String())
	}
	if n.ID != "" && n.ID == r.selected {
		r.sb.WriteString(p.String(" <").Bold().String())
	}
	r.sb.WriteString("\n")
}

func varMark(v domain.VarRef) string {
	switch v {
	case domain.VarRead:
		return "(r)"
	case domain.VarWrite:
		return "(w)"
	case domain.VarReadWrite:
		return "(rw)"
	}
	return ""
}

func varColor(v domain.VarRef) string {
	switch v {
	case domain.VarRead:
		return "#60a5fa"
	case domain.VarWrite:
		return "#f472b6"
	}
	return "#a78bfa"
}

// details formats the arguments and ports of n.
func details(n *domain.Node) string {
	var parts []string
	keys := make([]string, 0, len(n.Args))
	for k := range n.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := n.Args[k]
		if s, ok := v.(string); ok {
			parts = append(parts, fmt.Sprintf("%s=%q", k, s))
		} else {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	if len(n.Input) > 0 {
		parts = append(parts, "in:"+strings.Join(n.Input, ","))
	}
	if len(n.Output) > 0 {
		parts = append(parts, "out:"+strings.Join(n.Output, ","))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
