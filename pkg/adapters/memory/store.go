package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

type entry struct {
	doc     *domain.Document
	modTime time.Time
}

// Store implements ports.DocumentStore in memory.
// Safe for concurrent use. Modification times come from a logical clock that
// advances on every write, so two writes never share a timestamp.
type Store struct {
	mu    sync.RWMutex
	data  map[string]entry
	clock time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data:  make(map[string]entry),
		clock: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewStoreFromDocuments creates a store seeded with the given documents.
func NewStoreFromDocuments(docs map[string]*domain.Document) *Store {
	s := NewStore()
	for path, doc := range docs {
		_ = s.Write(context.Background(), path, doc)
	}
	return s
}

func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// Read returns a copy of the stored document.
func (s *Store) Read(ctx context.Context, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[path]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	// Copy on read so callers can't mutate the stored document by pointer.
	return tree.StorageDocument(e.doc, true), nil
}

// Write stores a copy of doc.
func (s *Store) Write(ctx context.Context, path string, doc *domain.Document) error {
	copied := tree.StorageDocument(doc, true)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = entry{doc: copied, modTime: s.tick()}
	return nil
}

// Stat returns the logical modification time of path.
func (s *Store) Stat(ctx context.Context, path string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[path]
	if !ok {
		return time.Time{}, domain.ErrDocumentNotFound
	}
	return e.modTime, nil
}

// List returns all stored paths, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.data))
	for p := range s.data {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}

// Touch advances the modification time of path without changing its content.
func (s *Store) Touch(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[path]; ok {
		e.modTime = s.tick()
		s.data[path] = e
	}
}

// Delete removes path.
func (s *Store) Delete(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, path)
}
