package schema

import (
	"sort"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/tree"
)

// ProblemArgType is the tree.Problem code for argument type findings.
const ProblemArgType = "arg_type"

// Schema is a map of argument names to their expected types.
type Schema map[string]Type

// ForDefinition builds the schema of a node type from its argument declarations.
func ForDefinition(def domain.Definition) Schema {
	s := make(Schema, len(def.Args))
	for _, a := range def.Args {
		t := ParseType(a.Type)
		if a.Optional {
			if _, ok := t.(*OptionalType); !ok {
				t = Optional(t)
			}
		}
		s[a.Name] = t
	}
	return s
}

// Validate checks the present arguments of data against the schema.
// Missing arguments are left to definition binding; arguments the schema
// does not declare are reported. All failures are returned as one
// *AggregateError, in argument name order.
func Validate(schema Schema, data map[string]any) error {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs []error
	for _, key := range keys {
		value := data[key]
		fieldType, ok := schema[key]
		if !ok {
			errs = append(errs, &ValidationError{Key: key, Reason: "not declared", Value: value})
			continue
		}
		if err := fieldType.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: key, Reason: err.Error(), Value: value})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// CheckTree validates the arguments of every cataloged node below root.
// Unknown node types and transcluded content are skipped.
func CheckTree(root *domain.Node, catalog ports.Catalog) []tree.Problem {
	if catalog == nil {
		return nil
	}
	cache := make(map[string]Schema)
	var out []tree.Problem
	tree.Walk(root, func(n *domain.Node) bool {
		if catalog.Exists(n.Name) && len(n.Args) > 0 {
			s, ok := cache[n.Name]
			if !ok {
				s = ForDefinition(catalog.Lookup(n.Name))
				cache[n.Name] = s
			}
			for _, err := range ValidationErrors(Validate(s, n.Args)) {
				out = append(out, tree.Problem{NodeID: n.ID, Name: n.Name, Code: ProblemArgType, Message: err.Error()})
			}
		}
		return !n.IsSubtree()
	})
	return out
}
