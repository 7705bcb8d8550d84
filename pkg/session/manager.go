package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed holder can block a path.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates document persistence, ensuring that operations on the
// same path never interleave. Unused locks are garbage collected by
// reference counting.
type Manager struct {
	store ports.DocumentStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Manager over the given document store.
func NewManager(store ports.DocumentStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(path) after unlocking.
func (m *Manager) acquire(path string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[path]
	if !exists {
		entry = &lockEntry{}
		m.locks[path] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[path]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, path)
	}
}

// Load reads the document at path.
func (m *Manager) Load(ctx context.Context, path string) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, path, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Read(ctx, path)
		return err
	})
	return doc, err
}

// Create persists doc at path unless a document already exists there.
func (m *Manager) Create(ctx context.Context, path string, doc *domain.Document) error {
	return m.WithLock(ctx, path, func(ctx context.Context) error {
		_, err := m.store.Stat(ctx, path)
		if err == nil {
			return fmt.Errorf("%s: %w", path, domain.ErrDocumentExists)
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return fmt.Errorf("failed to check document existence: %w", err)
		}
		return m.store.Write(ctx, path, doc)
	})
}

// Save persists doc at path.
func (m *Manager) Save(ctx context.Context, path string, doc *domain.Document) error {
	return m.WithLock(ctx, path, func(ctx context.Context) error {
		return m.store.Write(ctx, path, doc)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying document store.
func (m *Manager) Store() ports.DocumentStore {
	return m.store
}

// WithLock executes a function while holding the lock for path.
func (m *Manager) WithLock(ctx context.Context, path string, fn func(context.Context) error) error {
	entry := m.acquire(path)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(path)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, path, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"path", path,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
