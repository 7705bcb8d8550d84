package loam

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T, files map[string]string) (*Catalog, error) {
	t.Helper()
	tmpDir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, tmpDir, files)
	c := New(loam.NewTypedRepository[dto.DefinitionMetadata](repo))
	return c, c.Load(context.Background())
}

func TestCatalog_SingleDefinitions(t *testing.T) {
	c, err := newCatalog(t, map[string]string{
		"actions/log.md": `---
name: Log
type: action
args:
  - message:string
---
Prints a message to the console.`,
		"composites/sequence.yaml": `name: Sequence
type: composite
`,
		"decorators/repeat.json": `{"name": "Repeat", "type": "Decorator", "args": [{"name": "count", "type": "int", "desc": "iterations"}]}`,
		"README.md":              `# Project nodes`,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Log", "Repeat", "Sequence"}, c.Names())

	log := c.Lookup("Log")
	assert.Equal(t, domain.CategoryAction, log.Category)
	assert.Equal(t, "Prints a message to the console.", log.Desc)
	assert.Equal(t, 0, log.Children)
	require.Len(t, log.Args, 1)
	assert.Equal(t, "message", log.Args[0].Name)

	assert.Equal(t, domain.ChildrenUnbounded, c.Lookup("Sequence").Children)

	repeat := c.Lookup("Repeat")
	assert.Equal(t, 1, repeat.Children)
	assert.Equal(t, "iterations", repeat.Args[0].Desc)

	assert.False(t, c.Exists("Missing"))
	assert.True(t, c.Lookup("Missing").Unknown)
}

func TestCatalog_Libraries(t *testing.T) {
	c, err := newCatalog(t, map[string]string{
		"core.yaml": `nodes:
  - name: Wait
    type: action
    args: ["time:float?"]
  - name: Check
    type: condition
    args: ["value:expr"]
`,
		"game.yaml": `nodes:
  - core
  - name: Wait
    type: action
    desc: local override
  - name: Attack
    type: action
    output: [damage]
`,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Attack", "Check", "Wait"}, c.Names())
	assert.Equal(t, "local override", c.Lookup("Wait").Desc, "local definitions shadow imports")
	assert.True(t, c.Lookup("Check").Args[0].IsExpr())
}

func TestCatalog_DetectsCycles(t *testing.T) {
	_, err := newCatalog(t, map[string]string{
		"a.yaml": "nodes:\n  - b\n",
		"b.yaml": "nodes:\n  - a\n",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestCatalog_DetectsCollisions(t *testing.T) {
	c, err := newCatalog(t, map[string]string{
		"one.md": "---\nname: Log\ntype: action\n---\n",
		"two.md": "---\nname: Log\ntype: action\n---\n",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
	assert.Empty(t, c.Names(), "failed loads keep the previous definitions")
}

func TestCatalog_InvalidArgs(t *testing.T) {
	_, err := newCatalog(t, map[string]string{
		"bad.md": "---\nname: Bad\nargs:\n  - 42\n---\n",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bad.args[0]")
}

func TestCatalog_BaseDefinitions(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, tmpDir, map[string]string{
		"log.yaml": "name: Log\ntype: action\nargs:\n  - message:string\n  - level:string\n",
	})
	base := []domain.Definition{
		{Name: "Sequence", Category: domain.CategoryComposite, Children: domain.ChildrenUnbounded},
		{Name: "Log", Category: domain.CategoryAction, Args: []domain.ArgDef{{Name: "message", Type: "string"}}},
	}
	c := New(loam.NewTypedRepository[dto.DefinitionMetadata](repo), WithBase(base))
	require.NoError(t, c.Load(context.Background()))

	assert.Equal(t, []string{"Log", "Sequence"}, c.Names())
	assert.Len(t, c.Lookup("Log").Args, 2, "repository definitions shadow the base")
}
