// Package redis provides a Redis-backed document store and distributed locker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const (
	fieldData  = "data"
	fieldMtime = "mtime"
)

// Store implements ports.DocumentStore using Redis. Each document is a hash
// holding its JSON encoding and modification time; a sorted set indexes the
// paths for List.
type Store struct {
	client *backend.Client
	prefix string
	now    func() time.Time
}

type Option func(*Store)

// WithPrefix sets the key prefix for documents.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "arbor:",
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client exposes the underlying client, e.g. to share it with a Locker.
func (s *Store) Client() *backend.Client {
	return s.client
}

func (s *Store) key(path string) string {
	return s.prefix + "doc:" + path
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Write persists the document and indexes its path.
func (s *Store) Write(ctx context.Context, path string, doc *domain.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	mtime := s.now().UnixNano()
	// Keep modification times strictly increasing per document even when the
	// clock has a coarse resolution.
	if prev, err := s.mtime(ctx, path); err == nil && mtime <= prev {
		mtime = prev + 1
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(path), fieldData, data, fieldMtime, mtime)
	// All scores are equal so the index is ordered lexicographically.
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: 0, Member: path})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Read retrieves and decodes the document.
func (s *Store) Read(ctx context.Context, path string) (*domain.Document, error) {
	val, err := s.client.HGet(ctx, s.key(path), fieldData).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrSerialization, path, err)
	}
	return &doc, nil
}

func (s *Store) mtime(ctx context.Context, path string) (int64, error) {
	val, err := s.client.HGet(ctx, s.key(path), fieldMtime).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return 0, domain.ErrDocumentNotFound
		}
		return 0, fmt.Errorf("failed to stat in redis: %w", err)
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt modification time for %s: %w", path, err)
	}
	return n, nil
}

// Stat returns the time of the last Write.
func (s *Store) Stat(ctx context.Context, path string) (time.Time, error) {
	n, err := s.mtime(ctx, path)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n), nil
}

// List returns every indexed path in lexicographic order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	paths, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return paths, nil
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, path string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(path))
	pipe.ZRem(ctx, s.indexKey(), path)
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
