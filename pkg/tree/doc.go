/*
Package tree holds the pure transforms over an expanded behavior tree.

Nodes own their children exclusively; there are no parent pointers. Parents and
ancestor chains are recomputed by traversal, so lookups stay consistent after any
structural mutation.

# Operations

  - Renumber: preorder id assignment, returning the next free id.
  - ToStorageForm: the inverse of expansion, stripping transcluded children and runtime state.
  - Bind: attaches catalog diagnostics (unknown type, child limits, args, slots).
  - Walk, Find, PathTo, Parent: traversal helpers used by edits and search.
*/
package tree
