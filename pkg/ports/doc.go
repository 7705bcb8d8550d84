/*
Package ports defines the driven ports (interfaces) for the Arbor engine.

These interfaces decouple the document engine from its collaborators, allowing
the same editing core to run against the filesystem, Redis, or in-memory fakes.

# Key Interfaces

  - Catalog: Resolves node type names to their definitions.
  - DocumentStore: Reads, writes, stats and lists documents in storage form.
  - Clipboard: Carries serialized nodes between copy and paste.
  - DistributedLocker: Serializes saves of one document across processes.
*/
package ports
