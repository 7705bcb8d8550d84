package domain

import "time"

// Node is a node instance in a behavior tree.
// A node either owns Children or references another document through Path;
// after expansion a Path node carries the transcluded children, which are
// regenerated on load and dropped from the storage form.
type Node struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Desc     string         `json:"desc,omitempty" yaml:"desc,omitempty"`
	Debug    bool           `json:"debug,omitempty" yaml:"debug,omitempty"`
	Disabled bool           `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Args     map[string]any `json:"args,omitempty" yaml:"args,omitempty"`
	Input    []string       `json:"input,omitempty" yaml:"input,omitempty"`
	Output   []string       `json:"output,omitempty" yaml:"output,omitempty"`
	Children []*Node        `json:"children,omitempty" yaml:"children,omitempty"`
	Path     string         `json:"path,omitempty" yaml:"path,omitempty"`

	// Runtime state, never serialized.

	// Subtree is set on a Path node once expansion has been attempted.
	Subtree *SubtreeRef `json:"-" yaml:"-"`
	// Flag marks a placeholder substituted for content that failed to resolve.
	Flag *Flag `json:"-" yaml:"-"`
	// Diagnostics are produced by binding the node to its catalog definition.
	Diagnostics []Diagnostic `json:"-" yaml:"-"`
	// Tags carry search and variable highlight state.
	Tags Tags `json:"-" yaml:"-"`
}

// IsSubtree reports whether the node is a transclusion point.
func (n *Node) IsSubtree() bool {
	return n != nil && n.Path != ""
}

// SubtreeRef records where transcluded content came from.
type SubtreeRef struct {
	Path    string
	ModTime time.Time
	// Missing is true when the source did not exist at expansion time.
	Missing bool
}

// FlagKind classifies a flagged placeholder node.
type FlagKind string

const (
	FlagCycle          FlagKind = "cycle"
	FlagMissingSubtree FlagKind = "missing_subtree"
)

// Flag is the error marker carried by a placeholder node.
type Flag struct {
	Kind    FlagKind
	Message string
}

// DiagnosticCode identifies a definition-binding problem.
type DiagnosticCode string

const (
	DiagUnknownType   DiagnosticCode = "unknown_type"
	DiagChildrenCount DiagnosticCode = "children_count"
	DiagMissingArg    DiagnosticCode = "missing_arg"
	DiagInputCount    DiagnosticCode = "input_count"
	DiagOutputCount   DiagnosticCode = "output_count"
)

// Diagnostic is a non-fatal validity note attached to a node.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
}

// Match is the search highlight state of a node.
type Match uint8

const (
	MatchNone Match = iota
	MatchHit
	MatchDimmed
)

func (m Match) String() string {
	switch m {
	case MatchHit:
		return "hit"
	case MatchDimmed:
		return "dimmed"
	default:
		return ""
	}
}

// VarRef is the variable cross-reference state of a node.
type VarRef uint8

const (
	VarNone VarRef = iota
	VarRead
	VarWrite
	VarReadWrite
	VarUnrelated
)

func (v VarRef) String() string {
	switch v {
	case VarRead:
		return "read"
	case VarWrite:
		return "write"
	case VarReadWrite:
		return "read_write"
	case VarUnrelated:
		return "unrelated"
	default:
		return ""
	}
}

// Tags is the highlight state the renderer draws.
type Tags struct {
	Match Match
	Var   VarRef
}

// Dimmed reports whether the renderer should fade the node.
func (t Tags) Dimmed() bool {
	return t.Match == MatchDimmed || t.Var == VarUnrelated
}
