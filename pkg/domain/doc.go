/*
Package domain contains the core domain models of the Arbor behavior-tree engine.

It defines the entities every other package exchanges: node records, tree documents,
node-type definitions, highlight tags and the error vocabulary. This package is kept
pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Node: A node instance in a tree. Either owns children or references a subtree by Path.
  - Document: One editable tree plus its metadata (variables, imports, group tags).
  - Definition: The catalog entry describing a node type (category, args, child limits).
  - Tags: Runtime highlight state computed by search and variable cross-referencing.
*/
package domain
