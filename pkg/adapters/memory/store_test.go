package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.DocumentStore = (*memory.Store)(nil)

func TestStore_Contract(t *testing.T) {
	tests.RunDocumentStoreContract(t, memory.NewStore())
}

func TestStore_IsolatesCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	doc := domain.NewDocument("main")
	require.NoError(t, store.Write(ctx, "main.json", doc))

	doc.Root.Name = "Selector"
	loaded, err := store.Read(ctx, "main.json")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRootName, loaded.Root.Name, "write must copy")

	loaded.Root.Name = "Parallel"
	again, err := store.Read(ctx, "main.json")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRootName, again.Root.Name, "read must copy")
}

func TestStore_TouchAndDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Write(ctx, "a.json", domain.NewDocument("a")))

	before, err := store.Stat(ctx, "a.json")
	require.NoError(t, err)

	store.Touch("a.json")
	after, err := store.Stat(ctx, "a.json")
	require.NoError(t, err)
	assert.True(t, after.After(before))

	store.Delete("a.json")
	_, err = store.Stat(ctx, "a.json")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
