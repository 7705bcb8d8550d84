/*
Package editor owns one open behavior tree document and applies every
mutation to it.

An Editor serializes its operations with a mutex. Each committed mutation:

 1. validates and mutates the expanded tree (package edit);
 2. expands any pasted or re-pointed subtree references;
 3. renumbers the tree and rebinds it against the catalog;
 4. records a storage-form snapshot in the history (identical snapshots are
    coalesced);
 5. re-applies the active search and variable highlight;
 6. fires domain.Hooks.OnChange.

Hooks run while the editor lock is held and must not call back into the Editor.
*/
package editor
