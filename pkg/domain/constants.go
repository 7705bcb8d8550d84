package domain

// Node categories as declared by the catalog.
const (
	CategoryComposite = "Composite"
	CategoryDecorator = "Decorator"
	CategoryCondition = "Condition"
	CategoryAction    = "Action"
	CategoryUnknown   = "Unknown"
)

const (
	// DefaultRootName is the node type used for the root of a new document.
	DefaultRootName = "Sequence"

	// DefaultNodeName is the node type given to freshly inserted nodes.
	// It is deliberately absent from catalogs so new nodes show up flagged
	// until the user picks a type.
	DefaultNodeName = "Unknown"

	// RootID is the id the root node always receives after renumbering.
	RootID = "1"

	// ChildrenUnbounded marks a definition accepting any number of children.
	ChildrenUnbounded = -1
)

// Argument types that hold expressions referencing variables.
const (
	ArgTypeExpr = "expr"
	ArgTypeCode = "code"
)

// VariadicSuffix marks the last input/output slot of a definition as repeatable.
const VariadicSuffix = "..."
