package domain

// Variable is a blackboard variable declared by a document.
type Variable struct {
	Name string `json:"name" yaml:"name"`
	Desc string `json:"desc,omitempty" yaml:"desc,omitempty"`
}

// Document is one editable behavior tree with its metadata.
type Document struct {
	Name    string     `json:"name" yaml:"name"`
	Desc    string     `json:"desc,omitempty" yaml:"desc,omitempty"`
	Vars    []Variable `json:"vars,omitempty" yaml:"vars,omitempty"`
	Imports []string   `json:"import,omitempty" yaml:"import,omitempty"`
	Group   []string   `json:"group,omitempty" yaml:"group,omitempty"`
	Root    *Node      `json:"root" yaml:"root"`
}

// NewDocument returns a document holding a single default root node.
func NewDocument(name string) *Document {
	return &Document{
		Name: name,
		Root: &Node{ID: RootID, Name: DefaultRootName},
	}
}
