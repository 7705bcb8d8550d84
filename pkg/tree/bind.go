package tree

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Bind resolves every node against the catalog and replaces its diagnostics.
// Unknown names are flagged, never rejected.
func Bind(root *domain.Node, catalog ports.Catalog) {
	Walk(root, func(n *domain.Node) bool {
		n.Diagnostics = Check(n, catalog)
		return true
	})
}

// Check returns the diagnostics for a single node.
func Check(n *domain.Node, catalog ports.Catalog) []domain.Diagnostic {
	if catalog == nil {
		return nil
	}
	if !catalog.Exists(n.Name) {
		return []domain.Diagnostic{{
			Code:    domain.DiagUnknownType,
			Message: fmt.Sprintf("%v: %q", domain.ErrUnknownNodeType, n.Name),
		}}
	}
	def := catalog.Lookup(n.Name)

	var diags []domain.Diagnostic
	if msg := checkChildren(def, len(n.Children), n.IsSubtree()); msg != "" {
		diags = append(diags, domain.Diagnostic{Code: domain.DiagChildrenCount, Message: msg})
	}
	for _, a := range def.Args {
		if a.Optional || strings.HasSuffix(a.Type, "?") {
			continue
		}
		if v, ok := n.Args[a.Name]; !ok || v == nil {
			diags = append(diags, domain.Diagnostic{
				Code:    domain.DiagMissingArg,
				Message: fmt.Sprintf("missing required argument %q", a.Name),
			})
		}
	}
	if !slotsFit(def.Input, len(n.Input)) {
		diags = append(diags, domain.Diagnostic{
			Code:    domain.DiagInputCount,
			Message: fmt.Sprintf("%d inputs declared, %d given", len(def.Input), len(n.Input)),
		})
	}
	if !slotsFit(def.Output, len(n.Output)) {
		diags = append(diags, domain.Diagnostic{
			Code:    domain.DiagOutputCount,
			Message: fmt.Sprintf("%d outputs declared, %d given", len(def.Output), len(n.Output)),
		})
	}
	return diags
}

func checkChildren(def domain.Definition, count int, subtree bool) string {
	// Transcluded children are validated in their own document.
	if subtree || def.Children == domain.ChildrenUnbounded {
		return ""
	}
	if def.Children == 0 && count > 0 {
		return fmt.Sprintf("%s nodes cannot have children, found %d", def.Name, count)
	}
	if def.Children > 0 && count != def.Children {
		return fmt.Sprintf("%s requires exactly %d children, found %d", def.Name, def.Children, count)
	}
	return ""
}

func slotsFit(declared []string, given int) bool {
	if len(declared) > 0 && strings.HasSuffix(declared[len(declared)-1], domain.VariadicSuffix) {
		return true
	}
	return given <= len(declared)
}
