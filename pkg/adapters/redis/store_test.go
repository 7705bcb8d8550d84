package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure the adapters implement their ports
var (
	_ ports.DocumentStore     = (*redis.Store)(nil)
	_ ports.DistributedLocker = (*redis.Locker)(nil)
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	tests.RunDocumentStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "main.json", domain.NewDocument("main")))

	assert.True(t, mr.Exists("custom:app:doc:main.json"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.json"}, list)

	require.NoError(t, store.Delete(ctx, "main.json"))
	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = store.Stat(ctx, "main.json")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestRedisStore_Corrupt(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client)

	mr.HSet("arbor:doc:bad.json", "data", "{", "mtime", "nope")
	_, err := store.Read(context.Background(), "bad.json")
	assert.ErrorIs(t, err, domain.ErrSerialization)
	_, err = store.Stat(context.Background(), "bad.json")
	assert.Error(t, err)
}

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "main.json", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:main.json"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:main.json"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := setup(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker1.Lock(ctx, "shared.json", 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker2.Lock(ctxTimeout, "shared.json", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, "shared.json", 5*time.Second)
	require.NoError(t, err)
	defer unlock2(ctx)
	assert.True(t, mr.Exists("test:lock:shared.json"))
}

func TestRedisLocker_ForeignUnlockIsIgnored(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "doc", time.Second)
	require.NoError(t, err)

	// The lock expires and another holder takes it.
	mr.FastForward(2 * time.Second)
	require.NoError(t, mr.Set("test:lock:doc", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:doc")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
