package dto

import "github.com/aretw0/arbor/pkg/domain"

// NodePatch is a partial update of a node's fields. Nil fields are left as is.
type NodePatch struct {
	Name     *string        `json:"name,omitempty"`
	Desc     *string        `json:"desc,omitempty"`
	Debug    *bool          `json:"debug,omitempty"`
	Disabled *bool          `json:"disabled,omitempty"`
	Args     map[string]any `json:"args,omitempty"`
	Input    *[]string      `json:"input,omitempty"`
	Output   *[]string      `json:"output,omitempty"`
	Path     *string        `json:"path,omitempty"`
}

// Apply writes the set fields into n. Args are merged key by key; a nil
// value removes the argument.
func (p NodePatch) Apply(n *domain.Node) {
	if p.Name != nil {
		n.Name = *p.Name
	}
	if p.Desc != nil {
		n.Desc = *p.Desc
	}
	if p.Debug != nil {
		n.Debug = *p.Debug
	}
	if p.Disabled != nil {
		n.Disabled = *p.Disabled
	}
	for k, v := range p.Args {
		if v == nil {
			delete(n.Args, k)
			continue
		}
		if n.Args == nil {
			n.Args = make(map[string]any)
		}
		n.Args[k] = v
	}
	if p.Input != nil {
		n.Input = append([]string(nil), (*p.Input)...)
	}
	if p.Output != nil {
		n.Output = append([]string(nil), (*p.Output)...)
	}
	if p.Path != nil {
		n.Path = *p.Path
	}
}

// DocumentPatch is a partial update of a document's metadata.
type DocumentPatch struct {
	Name    *string            `json:"name,omitempty"`
	Desc    *string            `json:"desc,omitempty"`
	Vars    *[]domain.Variable `json:"vars,omitempty"`
	Imports *[]string          `json:"import,omitempty"`
	Group   *[]string          `json:"group,omitempty"`
}

// Apply writes the set fields into doc.
func (p DocumentPatch) Apply(doc *domain.Document) {
	if p.Name != nil {
		doc.Name = *p.Name
	}
	if p.Desc != nil {
		doc.Desc = *p.Desc
	}
	if p.Vars != nil {
		doc.Vars = append([]domain.Variable(nil), (*p.Vars)...)
	}
	if p.Imports != nil {
		doc.Imports = append([]string(nil), (*p.Imports)...)
	}
	if p.Group != nil {
		doc.Group = append([]string(nil), (*p.Group)...)
	}
}
