package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// GraphOverlay contains editor state to visualize on the graph.
type GraphOverlay struct {
	Selected string
	// Highlights applies the search and variable tags carried by the nodes.
	Highlights bool
}

// GenerateMermaid produces a Mermaid flowchart of the tree under root.
// Node shapes follow the catalog category:
// - Composite: ([Stadium])
// - Decorator: {{Hexagon}}
// - Condition: {Rhombus}
// - SubTree: [[Subroutine]]
// - Flagged placeholder: >Asymmetric]
// - Default: [Rectangle]
// Edges into transcluded content are dotted. Overlay classes are emitted when
// an overlay is given.
func GenerateMermaid(root *domain.Node, catalog ports.Catalog, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if root == nil {
		return sb.String()
	}

	classes := map[string][]string{}
	var visit func(n *domain.Node, transcluded bool)
	visit = func(n *domain.Node, transcluded bool) {
		safeID := sanitizeMermaidID(n.ID)
		opener, closer := shape(n, catalog)
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label(n), closer))

		if overlay != nil {
			for _, c := range nodeClasses(n, overlay) {
				classes[c] = append(classes[c], safeID)
			}
		}

		inner := transcluded || n.IsSubtree()
		for _, c := range n.Children {
			arrow := "-->"
			if inner {
				arrow = "-.->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeMermaidID(c.ID)))
			visit(c, inner)
		}
	}
	visit(root, false)

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef hit fill:#ffeb3b,stroke:#fbc02d,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef dimmed fill:#eeeeee,stroke:#bdbdbd,color:#9e9e9e;\n")
		sb.WriteString("    classDef read fill:#e1f5fe,stroke:#01579b,color:#000;\n")
		sb.WriteString("    classDef write fill:#fce4ec,stroke:#880e4f,color:#000;\n")
		sb.WriteString("    classDef read_write fill:#ede7f6,stroke:#4527a0,color:#000;\n")
		sb.WriteString("    classDef flagged fill:#ffcdd2,stroke:#b71c1c,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef disabled stroke-dasharray:2,color:#9e9e9e;\n")
		sb.WriteString("    classDef selected stroke:#000,stroke-width:4px;\n")
		for _, c := range []string{"dimmed", "disabled", "read", "write", "read_write", "hit", "flagged", "selected"} {
			if ids := classes[c]; len(ids) > 0 {
				sb.WriteString(fmt.Sprintf("    class %s %s;\n", strings.Join(ids, ","), c))
			}
		}
	}

	return sb.String()
}

func shape(n *domain.Node, catalog ports.Catalog) (string, string) {
	switch {
	case n.Flag != nil:
		return ">", "]"
	case n.IsSubtree():
		return "[[", "]]"
	}
	if catalog == nil {
		return "[", "]"
	}
	switch catalog.Lookup(n.Name).Category {
	case domain.CategoryComposite:
		return "([", "])"
	case domain.CategoryDecorator:
		return "{{", "}}"
	case domain.CategoryCondition:
		return "{", "}"
	}
	return "[", "]"
}

func label(n *domain.Node) string {
	text := n.ID + ": " + n.Name
	if n.IsSubtree() {
		text += " <br/> " + n.Path
	}
	if n.Flag != nil {
		text += " <br/> ⚠ " + n.Flag.Message
	}
	// Escape double quotes for the Mermaid label
	return strings.ReplaceAll(text, "\"", "'")
}

func nodeClasses(n *domain.Node, overlay *GraphOverlay) []string {
	var out []string
	if overlay.Highlights {
		switch {
		case n.Tags.Match == domain.MatchHit:
			out = append(out, "hit")
		case n.Tags.Dimmed():
			out = append(out, "dimmed")
		}
		switch n.Tags.Var {
		case domain.VarRead, domain.VarWrite, domain.VarReadWrite:
			out = append(out, n.Tags.Var.String())
		}
	}
	if n.Flag != nil {
		out = append(out, "flagged")
	}
	if n.Disabled {
		out = append(out, "disabled")
	}
	if overlay.Selected != "" && n.ID == overlay.Selected {
		out = append(out, "selected")
	}
	return out
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return "n" + s
}
