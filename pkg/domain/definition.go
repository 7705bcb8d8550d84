package domain

import "strings"

// ArgDef declares one argument of a node type.
type ArgDef struct {
	Name     string `json:"name" yaml:"name" mapstructure:"name"`
	Type     string `json:"type" yaml:"type" mapstructure:"type"`
	Desc     string `json:"desc,omitempty" yaml:"desc,omitempty" mapstructure:"desc"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty" mapstructure:"optional"`
}

// IsExpr reports whether the argument holds expressions that may reference variables.
// A trailing "[]" (list of) and "?" (optional) are ignored.
func (a ArgDef) IsExpr() bool {
	t := strings.TrimSuffix(strings.TrimSuffix(a.Type, "?"), "[]")
	return t == ArgTypeExpr || t == ArgTypeCode
}

// Definition is the catalog entry for a node type.
type Definition struct {
	Name     string   `json:"name" yaml:"name"`
	Category string   `json:"type" yaml:"type"`
	Desc     string   `json:"desc,omitempty" yaml:"desc,omitempty"`
	Args     []ArgDef `json:"args,omitempty" yaml:"args,omitempty"`
	Input    []string `json:"input,omitempty" yaml:"input,omitempty"`
	Output   []string `json:"output,omitempty" yaml:"output,omitempty"`
	// Children is ChildrenUnbounded, 0 (leaf) or the exact number required.
	Children int `json:"children" yaml:"children"`

	// Unknown marks the placeholder returned for names absent from the catalog.
	Unknown bool `json:"-" yaml:"-"`
}

// UnknownDefinition is the placeholder for a missing catalog entry.
// It accepts any shape so unknown nodes are only flagged, never constrained.
func UnknownDefinition(name string) Definition {
	return Definition{
		Name:     name,
		Category: CategoryUnknown,
		Children: ChildrenUnbounded,
		Unknown:  true,
	}
}

// Arg returns the declaration for the named argument.
func (d Definition) Arg(name string) (ArgDef, bool) {
	for _, a := range d.Args {
		if a.Name == name {
			return a, true
		}
	}
	return ArgDef{}, false
}

// DefaultChildren infers the children constraint from a category when the
// catalog leaves it implicit.
func DefaultChildren(category string) int {
	switch category {
	case CategoryComposite:
		return ChildrenUnbounded
	case CategoryDecorator:
		return 1
	default:
		return 0
	}
}
