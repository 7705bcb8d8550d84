package dto

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/ports"
)

// NodeView is the wire form of an expanded node, runtime state included.
// It is what renderers outside the process (HTTP, MCP) draw.
type NodeView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Category    string           `json:"category,omitempty"`
	Desc        string           `json:"desc,omitempty"`
	Debug       bool             `json:"debug,omitempty"`
	Disabled    bool             `json:"disabled,omitempty"`
	Args        map[string]any   `json:"args,omitempty"`
	Input       []string         `json:"input,omitempty"`
	Output      []string         `json:"output,omitempty"`
	Path        string           `json:"path,omitempty"`
	Transcluded bool             `json:"transcluded,omitempty"`
	Match       string           `json:"match,omitempty"`
	Var         string           `json:"var,omitempty"`
	Dimmed      bool             `json:"dimmed,omitempty"`
	Flag        *FlagView        `json:"flag,omitempty"`
	Diagnostics []DiagnosticView `json:"diagnostics,omitempty"`
	Children    []*NodeView      `json:"children,omitempty"`
}

// FlagView describes a placeholder substituted for unresolved content.
type FlagView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// DiagnosticView is one definition-binding finding.
type DiagnosticView struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DocumentView is the wire form of an open document.
type DocumentView struct {
	Path     string            `json:"path"`
	Name     string            `json:"name"`
	Desc     string            `json:"desc,omitempty"`
	Vars     []domain.Variable `json:"vars,omitempty"`
	Imports  []string          `json:"import,omitempty"`
	Group    []string          `json:"group,omitempty"`
	Selected string            `json:"selected"`
	Dirty    bool              `json:"dirty"`
	CanUndo  bool              `json:"can_undo"`
	CanRedo  bool              `json:"can_redo"`
	Root     *NodeView         `json:"root"`
}

// ToNodeView converts n and its descendants. catalog may be nil.
func ToNodeView(n *domain.Node, catalog ports.Catalog) *NodeView {
	return toNodeView(n, catalog, false)
}

func toNodeView(n *domain.Node, catalog ports.Catalog, transcluded bool) *NodeView {
	if n == nil {
		return nil
	}
	v := &NodeView{
		ID:          n.ID,
		Name:        n.Name,
		Desc:        n.Desc,
		Debug:       n.Debug,
		Disabled:    n.Disabled,
		Args:        n.Args,
		Input:       n.Input,
		Output:      n.Output,
		Path:        n.Path,
		Transcluded: transcluded,
		Match:       n.Tags.Match.String(),
		Var:         n.Tags.Var.String(),
		Dimmed:      n.Tags.Dimmed(),
	}
	if catalog != nil {
		v.Category = catalog.Lookup(n.Name).Category
	}
	if n.Flag != nil {
		v.Flag = &FlagView{Kind: string(n.Flag.Kind), Message: n.Flag.Message}
	}
	for _, d := range n.Diagnostics {
		v.Diagnostics = append(v.Diagnostics, DiagnosticView{Code: string(d.Code), Message: d.Message})
	}
	for _, c := range n.Children {
		v.Children = append(v.Children, toNodeView(c, catalog, transcluded || n.IsSubtree()))
	}
	return v
}

// ViewEditor snapshots the state of an editor.
func ViewEditor(e *editor.Editor, catalog ports.Catalog) *DocumentView {
	v := &DocumentView{
		Path:     e.Path(),
		Selected: e.Selected(),
		Dirty:    e.Dirty(),
		CanUndo:  e.CanUndo(),
		CanRedo:  e.CanRedo(),
	}
	doc := e.Document()
	v.Name = doc.Name
	v.Desc = doc.Desc
	v.Vars = doc.Vars
	v.Imports = doc.Imports
	v.Group = doc.Group
	v.Root = ToNodeView(doc.Root, catalog)
	return v
}
