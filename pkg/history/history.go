// Package history keeps a linear undo/redo stack of document snapshots.
package history

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

// Entry is one recorded state together with the operation that produced it.
type Entry struct {
	Op       string
	Snapshot []byte
}

// Manager is the undo manager. Index points at the entry matching the live
// document. It is not safe for concurrent use; the editor owning it
// serializes access.
type Manager struct {
	entries []Entry
	index   int
	saved   int
	limit   int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLimit bounds the number of retained entries. Zero or negative keeps
// everything.
func WithLimit(n int) Option {
	return func(m *Manager) {
		m.limit = n
	}
}

// New creates a Manager whose first entry is the given initial state, which
// also counts as saved.
func New(initial []byte, opts ...Option) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	m.Reset(initial)
	return m
}

// Reset drops all entries and starts over from snapshot, marked as saved.
func (m *Manager) Reset(snapshot []byte) {
	m.entries = []Entry{{Op: "open", Snapshot: snapshot}}
	m.index = 0
	m.saved = 0
}

// Commit records snapshot as the state after op. A snapshot equal to the
// current entry is discarded and Commit reports false. Otherwise the redo
// future is truncated.
func (m *Manager) Commit(op string, snapshot []byte) bool {
	if bytes.Equal(m.entries[m.index].Snapshot, snapshot) {
		return false
	}
	m.entries = append(m.entries[:m.index+1], Entry{Op: op, Snapshot: snapshot})
	m.index++
	if m.saved > m.index-1 {
		// the saved state was in the truncated future
		m.saved = -1
	}
	m.trim()
	return true
}

func (m *Manager) trim() {
	if m.limit <= 0 || len(m.entries) <= m.limit {
		return
	}
	drop := len(m.entries) - m.limit
	m.entries = append([]Entry(nil), m.entries[drop:]...)
	m.index -= drop
	if m.saved >= 0 {
		m.saved -= drop
		if m.saved < 0 {
			m.saved = -1
		}
	}
}

// Undo steps back one entry and returns the snapshot to restore.
func (m *Manager) Undo() ([]byte, error) {
	if !m.CanUndo() {
		return nil, domain.ErrNothingToUndo
	}
	m.index--
	return m.entries[m.index].Snapshot, nil
}

// Redo steps forward one entry and returns the snapshot to restore.
func (m *Manager) Redo() ([]byte, error) {
	if !m.CanRedo() {
		return nil, domain.ErrNothingToRedo
	}
	m.index++
	return m.entries[m.index].Snapshot, nil
}

func (m *Manager) CanUndo() bool { return m.index > 0 }
func (m *Manager) CanRedo() bool { return m.index < len(m.entries)-1 }

// Len returns the number of retained entries.
func (m *Manager) Len() int { return len(m.entries) }

// Index returns the position of the current entry.
func (m *Manager) Index() int { return m.index }

// Current returns the entry matching the live document.
func (m *Manager) Current() Entry { return m.entries[m.index] }

// Dirty reports whether the live state differs from the last saved one.
func (m *Manager) Dirty() bool { return m.index != m.saved }

// MarkSaved records the current entry as the persisted state.
func (m *Manager) MarkSaved() { m.saved = m.index }

// Snapshot encodes the storage form of doc without node ids. Ids depend on
// the size of transcluded content and are reassigned on restore, so two
// snapshots of the same local structure compare equal across reloads.
func Snapshot(doc *domain.Document) ([]byte, error) {
	form := tree.StorageDocument(doc, false)
	tree.Walk(form.Root, func(n *domain.Node) bool {
		n.ID = ""
		return true
	})
	data, err := json.Marshal(form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	return data, nil
}

// Restore decodes a snapshot produced by Snapshot.
func Restore(snapshot []byte) (*domain.Document, error) {
	var doc domain.Document
	if err := json.Unmarshal(snapshot, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: snapshot has no root", domain.ErrSerialization)
	}
	return &doc, nil
}
