/*
Package edit implements the structural operations on an expanded behavior tree.

Every operation validates before it mutates: a rejected operation returns a
*domain.OpError wrapping domain.ErrInvalidTarget, domain.ErrCycleDetected,
domain.ErrNodeNotFound or domain.ErrSerialization and leaves the tree untouched.
Callers renumber and snapshot after a successful call.

The guards shared by all operations:

  - nodes inside a transcluded subtree (other than the subtree root itself) are read-only;
  - the root cannot be deleted, replaced, moved or given siblings;
  - a node cannot be moved under itself or its own descendants.
*/
package edit
