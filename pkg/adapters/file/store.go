// Package file persists behavior tree documents and node catalogs on the
// local filesystem as JSON or YAML.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Store implements ports.DocumentStore over a directory. The document format
// follows the extension: .json, or .yaml/.yml.
type Store struct {
	BasePath string
	ignore   []string
}

// Option configures the Store.
type Option func(*Store)

// WithIgnore hides the given slash-separated paths from List. A directory
// hides everything below it.
func WithIgnore(paths ...string) Option {
	return func(s *Store) {
		for _, p := range paths {
			if p = path.Clean(filepath.ToSlash(p)); p != "." && p != "" {
				s.ignore = append(s.ignore, p)
			}
		}
	}
}

// New creates a new Store rooted at basePath.
// If basePath is empty, it defaults to the current directory.
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = "."
	}
	s := &Store{BasePath: basePath}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ignored(rel string) bool {
	for _, p := range s.ignore {
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// IsDocument reports whether name carries a supported document extension.
func IsDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// resolve maps a slash-separated document path to a file inside BasePath.
func (s *Store) resolve(p string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(p))[1:]
	if clean == "" || clean == "." {
		return "", fmt.Errorf("empty document path")
	}
	if !IsDocument(clean) {
		return "", fmt.Errorf("unsupported document extension: %s", p)
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(clean)), nil
}

// Encode renders doc in the format implied by name.
func Encode(name string, doc *domain.Document) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(doc)
}

// Decode parses data in the format implied by name.
func Decode(name string, data []byte) (*domain.Document, error) {
	var doc domain.Document
	var err error
	if strings.EqualFold(filepath.Ext(name), ".json") {
		err = json.Unmarshal(data, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSerialization, name, err)
	}
	if doc.Root == nil {
		return nil, fmt.Errorf("%w: %s: document has no root", domain.ErrSerialization, name)
	}
	return &doc, nil
}

// Read loads and decodes the document at p.
func (s *Store) Read(ctx context.Context, p string) (*domain.Document, error) {
	filePath, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return Decode(p, data)
}

// Write persists doc atomically: it writes a temporary file in the target
// directory, syncs it, and renames it over the destination.
func (s *Store) Write(ctx context.Context, p string, doc *domain.Document) error {
	destPath, err := s.resolve(p)
	if err != nil {
		return err
	}
	data, err := Encode(p, doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure document directory: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".tmp-*"+filepath.Ext(destPath))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// Stat returns the file modification time.
func (s *Store) Stat(ctx context.Context, p string) (time.Time, error) {
	filePath, err := s.resolve(p)
	if err != nil {
		return time.Time{}, err
	}
	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, domain.ErrDocumentNotFound
		}
		return time.Time{}, fmt.Errorf("failed to stat document: %w", err)
	}
	return info.ModTime(), nil
}

// List returns every document below BasePath as sorted slash paths.
// Hidden directories and files are skipped.
func (s *Store) List(ctx context.Context) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.BasePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.BasePath {
				return fs.SkipAll
			}
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && p != s.BasePath {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(s.BasePath, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if s.ignored(rel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsDocument(d.Name()) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Delete removes the document at p. Missing documents are not an error.
func (s *Store) Delete(ctx context.Context, p string) error {
	filePath, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
