package tests

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunDocumentStoreContract runs a suite of tests to verify that a DocumentStore
// implementation adheres to the defined interface contract.
// The store must be empty when passed in.
func RunDocumentStoreContract(t *testing.T, store ports.DocumentStore) {
	t.Helper()
	ctx := context.Background()

	sample := func(name string) *domain.Document {
		return &domain.Document{
			Name: name,
			Desc: "contract fixture",
			Vars: []domain.Variable{{Name: "target", Desc: "enemy"}},
			Root: &domain.Node{
				ID:   "1",
				Name: "Sequence",
				Children: []*domain.Node{
					{ID: "2", Name: "Log", Args: map[string]any{"message": "hi"}},
					{ID: "3", Name: "Wait", Input: []string{"", "delay"}},
					{ID: "4", Name: "SubTree", Path: "sub/attack.json"},
				},
			},
		}
	}

	t.Run("Write and Read", func(t *testing.T) {
		doc := sample("main")
		require.NoError(t, store.Write(ctx, "main.json", doc))

		loaded, err := store.Read(ctx, "main.json")
		require.NoError(t, err)
		assert.Equal(t, "main", loaded.Name)
		assert.Equal(t, doc.Vars, loaded.Vars)
		require.NotNil(t, loaded.Root)
		require.Len(t, loaded.Root.Children, 3)
		assert.Equal(t, "Log", loaded.Root.Children[0].Name)
		assert.Equal(t, "hi", loaded.Root.Children[0].Args["message"])
		assert.Equal(t, []string{"", "delay"}, loaded.Root.Children[1].Input)
		assert.Equal(t, "sub/attack.json", loaded.Root.Children[2].Path)
	})

	t.Run("Read Non-Existent", func(t *testing.T) {
		_, err := store.Read(ctx, "ghost.json")
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Stat", func(t *testing.T) {
		_, err := store.Stat(ctx, "ghost.json")
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

		require.NoError(t, store.Write(ctx, "stat.json", sample("stat")))
		first, err := store.Stat(ctx, "stat.json")
		require.NoError(t, err)
		assert.False(t, first.IsZero())

		require.NoError(t, store.Write(ctx, "stat.json", sample("stat-again")))
		second, err := store.Stat(ctx, "stat.json")
		require.NoError(t, err)
		assert.False(t, second.Before(first), "modification time must not go backwards")
	})

	t.Run("Nested paths and List", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, "sub/attack.json", sample("attack")))

		paths, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, paths, "main.json")
		assert.Contains(t, paths, "sub/attack.json")
		assert.IsIncreasing(t, paths)
	})
}
