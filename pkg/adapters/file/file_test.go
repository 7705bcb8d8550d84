package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/ports/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Store implements DocumentStore
var _ ports.DocumentStore = (*file.Store)(nil)

func TestStore_Contract(t *testing.T) {
	tests.RunDocumentStoreContract(t, file.New(t.TempDir()))
}

func TestStore_YAML(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"guard.yaml": `name: guard
desc: patrols the gate
root:
  name: Selector
  children:
    - name: Check
      args:
        value: "enemy != nil"
    - name: SubTree
      path: patrol.yml
`,
		".hidden/skip.json": `{}`,
		"notes.txt":         "not a document",
	})
	store := file.New(dir)
	ctx := context.Background()

	doc, err := store.Read(ctx, "guard.yaml")
	require.NoError(t, err)
	assert.Equal(t, "patrols the gate", doc.Desc)
	require.Len(t, doc.Root.Children, 2)
	assert.Equal(t, "enemy != nil", doc.Root.Children[0].Args["value"])
	assert.Equal(t, "patrol.yml", doc.Root.Children[1].Path)

	require.NoError(t, store.Write(ctx, "patrol.yml", domain.NewDocument("patrol")))
	paths, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"guard.yaml", "patrol.yml"}, paths)

	again, err := store.Read(ctx, "patrol.yml")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRootName, again.Root.Name)

	require.NoError(t, store.Delete(ctx, "patrol.yml"))
	_, err = store.Stat(ctx, "patrol.yml")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestStore_Errors(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644))
	_, err := store.Read(ctx, "broken.json")
	assert.ErrorIs(t, err, domain.ErrSerialization)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rootless.json"), []byte(`{"name":"x"}`), 0644))
	_, err = store.Read(ctx, "rootless.json")
	assert.ErrorIs(t, err, domain.ErrSerialization)

	err = store.Write(ctx, "tree.txt", domain.NewDocument("x"))
	assert.Error(t, err)

	// Paths cannot escape the base directory.
	require.NoError(t, store.Write(ctx, "../outside.json", domain.NewDocument("x")))
	_, err = os.Stat(filepath.Join(dir, "outside.json"))
	assert.NoError(t, err)

	paths, err := file.New(filepath.Join(dir, "missing")).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestStore_Ignore(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"arbor.yaml":       "documents: .\n",
		"nodes.yaml":       "[]\n",
		"build/main.json":  `{"name":"main","root":{"name":"Sequence"}}`,
		"trees/main.json":  `{"name":"main","root":{"name":"Sequence"}}`,
		"builder/ok.json":  `{"name":"ok","root":{"name":"Sequence"}}`,
		".hidden/sub.json": `{"name":"sub","root":{"name":"Sequence"}}`,
	})

	store := file.New(dir, file.WithIgnore("arbor.yaml", "nodes.yaml", "./build/", ""))
	paths, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"builder/ok.json", "trees/main.json"}, paths)

	_, err = store.Read(context.Background(), "build/main.json")
	assert.NoError(t, err, "ignored paths stay readable")
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"nodes.yaml": `nodes:
  - name: Patrol
    type: action
    args: ["route:string", "speed:float?"]
    output: [position]
  - name: Guard
    type: composite
`,
		"nodes.json": `[{"name": "Fire", "type": "action", "args": [{"name": "target", "type": "expr"}]}]`,
		"dupes.json": `[{"name": "A"}, {"name": "A"}]`,
	})

	c, err := file.LoadCatalog(filepath.Join(dir, "nodes.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Guard", "Patrol"}, c.Names())
	assert.Equal(t, domain.ChildrenUnbounded, c.Lookup("Guard").Children)
	assert.True(t, c.Lookup("Patrol").Args[1].Optional)

	c, err = file.LoadCatalog(filepath.Join(dir, "nodes.json"))
	require.NoError(t, err)
	assert.True(t, c.Lookup("Fire").Args[0].IsExpr())

	_, err = file.LoadCatalog(filepath.Join(dir, "dupes.json"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = file.LoadCatalog(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}
