/*
Package arbor is an editing engine for behavior-tree documents.

A behavior tree is a hierarchy of typed nodes (composites, decorators,
conditions and actions) whose types are declared by an external node
catalog. Subtrees can be reused by reference: a node carrying a path is
replaced, while editing, by the content of the referenced document
("transclusion").

# Concept

Arbor keeps documents in their storage form on disk and works on an expanded
copy in memory. Every structural edit (insert, delete, paste, replace, move)
is validated against the tree invariants, renumbered, snapshotted for
undo/redo and followed by a re-application of the active search and
variable highlights. The engine is UI-agnostic: renderers observe it through
domain.Hooks, and the same Workspace backs the CLI, the HTTP API and the MCP
server.

# Usage

	ws, err := arbor.New("./trees")
	if err != nil {
		log.Fatal(err)
	}
	defer ws.Shutdown(ctx)

	ed, err := ws.Open(ctx, "patrol.json")
	if err != nil {
		log.Fatal(err)
	}

	id, err := ed.Insert(ctx, "1")
	if err != nil {
		log.Fatal(err)
	}
	_ = ed.UpdateNode(ctx, id, func(n *domain.Node) { n.Name = "Log" })

	if err := ws.Save(ctx, "patrol.json"); err != nil {
		log.Fatal(err)
	}
*/
package arbor
