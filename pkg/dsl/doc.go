/*
Package dsl provides a Go DSL for programmatically constructing behavior-tree documents.

It allows developers to define trees using a fluent builder instead of
writing JSON or YAML by hand. This is particularly useful for generating
documents, seeding stores in tests, and leveraging IDE autocompletion.

Example usage:

	doc := dsl.New("patrol").
		Desc("Walks between waypoints").
		Var("target", "").
		Root(dsl.Node("Sequence").Children(
			dsl.Node("Log").Arg("message", "starting patrol"),
			dsl.Node("Wait").Arg("time", 1.5),
			dsl.Ref("trees/attack.json"),
		)).
		Build()

	// doc is a *domain.Document with preorder ids assigned,
	// ready for a ports.DocumentStore or arbor.Workspace.
*/
package dsl
