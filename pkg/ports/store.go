package ports

import (
	"context"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
)

// DocumentStore persists documents in storage form.
// Paths are slash-separated and relative to the store's root.
type DocumentStore interface {
	// Read loads the document at path.
	// Returns domain.ErrDocumentNotFound if the path does not exist.
	Read(ctx context.Context, path string) (*domain.Document, error)

	// Write persists doc at path, updating its modification time.
	Write(ctx context.Context, path string, doc *domain.Document) error

	// Stat returns the modification time of path.
	// Returns domain.ErrDocumentNotFound if the path does not exist.
	Stat(ctx context.Context, path string) (time.Time, error)

	// List returns every document path in the store, sorted.
	List(ctx context.Context) ([]string, error)
}
