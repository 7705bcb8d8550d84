package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency and records overlapping writes to the same path.
type SlowStore struct {
	*memory.Store
	active  atomic.Int32
	overlap atomic.Bool
}

func (s *SlowStore) Write(ctx context.Context, path string, doc *domain.Document) error {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)
	time.Sleep(5 * time.Millisecond) // Simulate IO
	return s.Store.Write(ctx, path, doc)
}

func TestManager_Locking(t *testing.T) {
	store := &SlowStore{Store: memory.NewStore()}
	manager := session.NewManager(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, manager.Save(ctx, "race.json", domain.NewDocument("race")))
		}()
	}
	wg.Wait()

	assert.False(t, store.overlap.Load(), "writes to one path must be serialized")
}

func TestManager_Create(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	var created atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Create(ctx, "new.json", domain.NewDocument("new"))
			if err == nil {
				created.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrDocumentExists)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), created.Load())

	doc, err := manager.Load(ctx, "new.json")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Name)
}

type fakeLocker struct {
	mu      sync.Mutex
	keys    []string
	fail    error
	release int
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.keys = append(f.keys, key)
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.release++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	locker := &fakeLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, "a.json", domain.NewDocument("a")))
	_, err := manager.Load(ctx, "a.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.json", "a.json"}, locker.keys)
	assert.Equal(t, 2, locker.release)

	locker.fail = errors.New("redis down")
	err = manager.Save(ctx, "a.json", domain.NewDocument("a"))
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
