// Package schema checks node argument values against the types declared by
// the catalog.
//
// Argument types are the catalog's type strings: the basic types "string",
// "int", "float", "bool" and "json", the expression types "expr" and "code"
// (strings), list forms written either "T[]" or "[T]", and a trailing "?"
// marking the argument optional. Types the package does not know are
// accepted as is, so project-specific types never produce false reports.
//
//	s := schema.ForDefinition(def)
//	if err := schema.Validate(s, node.Args); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        log.Println(e)
//	    }
//	}
//
// CheckTree runs the same check over every node of a bound tree and reports
// the findings as tree.Problem values next to the binding diagnostics.
package schema
