package dsl

import (
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Builder manages the document construction.
type Builder struct {
	doc  domain.Document
	root *NodeBuilder
}

// New creates a new document builder.
func New(name string) *Builder {
	return &Builder{doc: domain.Document{Name: name}}
}

// Desc sets the document description.
func (b *Builder) Desc(desc string) *Builder {
	b.doc.Desc = desc
	return b
}

// Var declares a blackboard variable.
func (b *Builder) Var(name, desc string) *Builder {
	b.doc.Vars = append(b.doc.Vars, domain.Variable{Name: name, Desc: desc})
	return b
}

// Import adds a catalog library import.
func (b *Builder) Import(paths ...string) *Builder {
	b.doc.Imports = append(b.doc.Imports, paths...)
	return b
}

// Group adds group tags.
func (b *Builder) Group(tags ...string) *Builder {
	b.doc.Group = append(b.doc.Group, tags...)
	return b
}

// Root sets the root node.
func (b *Builder) Root(n *NodeBuilder) *Builder {
	b.root = n
	return b
}

// Build returns the document with ids assigned. Without a Root the document
// gets the default root node.
func (b *Builder) Build() *domain.Document {
	doc := b.doc
	if b.root == nil {
		doc.Root = &domain.Node{Name: domain.DefaultRootName}
	} else {
		doc.Root = b.root.Build()
	}
	tree.Renumber(doc.Root)
	return &doc
}

// Store builds every document into a new in-memory store, keyed by path.
func Store(docs map[string]*Builder) *memory.Store {
	built := make(map[string]*domain.Document, len(docs))
	for path, b := range docs {
		built[path] = b.Build()
	}
	return memory.NewStoreFromDocuments(built)
}
