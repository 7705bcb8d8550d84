package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCycleDetected is returned when a transclusion or a reparent would close a loop.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrInvalidTarget is returned when an operation targets the root, a node inside
	// a transcluded subtree, or the node itself.
	ErrInvalidTarget = errors.New("invalid target")

	// ErrMissingSubtree is returned when a referenced subtree cannot be loaded or parsed.
	ErrMissingSubtree = errors.New("missing or malformed subtree")

	// ErrUnknownNodeType is reported (never returned by edits) for names absent from the catalog.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrSerialization is returned when a clipboard payload cannot be decoded.
	ErrSerialization = errors.New("serialization failure")

	// ErrNodeNotFound is returned when no node carries the requested id.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDocumentNotFound is returned by stores when a path does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentExists is returned when creating a document over an existing path.
	ErrDocumentExists = errors.New("document already exists")

	// ErrDocumentNotOpen is returned by the workspace for paths without an editor.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrNothingToUndo is returned when the history is at its oldest snapshot.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo is returned when the history is at its newest snapshot.
	ErrNothingToRedo = errors.New("nothing to redo")
)

// OpError describes a rejected structural operation.
type OpError struct {
	Op  string
	ID  string
	Err error
}

func (e *OpError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s node %s: %v", e.Op, e.ID, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// SubtreeError describes a transclusion that could not be expanded.
type SubtreeError struct {
	Path string
	Err  error
}

func (e *SubtreeError) Error() string {
	return fmt.Sprintf("subtree %q: %v", e.Path, e.Err)
}

func (e *SubtreeError) Unwrap() error { return e.Err }
