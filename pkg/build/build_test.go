package build_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/build"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project() *memory.Store {
	return memory.NewStoreFromDocuments(map[string]*domain.Document{
		"main.json": {
			Name: "main",
			Root: &domain.Node{Name: "Sequence", Children: []*domain.Node{
				{Name: "Log", Args: map[string]any{"message": "start"}},
				{Name: "SubTree", Path: "patrol.json"},
				{Name: "SubTree", Path: "gone.json"},
			}},
		},
		"patrol.json": {
			Name: "patrol",
			Root: &domain.Node{Name: "Sequence", Children: []*domain.Node{
				{Name: "Wait"},
				{Name: "Log"},
			}},
		},
	})
}

func TestBuilder_Run(t *testing.T) {
	ctx := context.Background()
	src := project()
	dst := memory.NewStore()

	var before, after []string
	nodes := registry.NewRegistry()
	nodes.Register("Log", func(_ context.Context, _ *domain.Document, n *domain.Node) error {
		n.Debug = true
		return nil
	})

	b := build.New(src, dst,
		build.WithRegistry(nodes),
		build.WithBefore(func(_ context.Context, p string, _ *domain.Document) error {
			before = append(before, p)
			return nil
		}),
		build.WithAfter(func(_ context.Context, p string, doc *domain.Document) error {
			after = append(after, p)
			doc.Group = append(doc.Group, "built")
			return nil
		}),
	)
	report, err := b.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.json", "patrol.json"}, report.Built)
	assert.Equal(t, report.Built, before)
	assert.Equal(t, report.Built, after)
	assert.Empty(t, report.Warnings, "references are not resolved without inlining")

	out, err := dst.Read(ctx, "main.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"built"}, out.Group)
	assert.True(t, out.Root.Children[0].Debug)
	assert.Equal(t, "patrol.json", out.Root.Children[1].Path)
	assert.Empty(t, out.Root.Children[1].Children)

	orig, err := src.Read(ctx, "main.json")
	require.NoError(t, err)
	assert.False(t, orig.Root.Children[0].Debug, "the source is left untouched")
}

func TestBuilder_Inline(t *testing.T) {
	ctx := context.Background()
	dst := memory.NewStore()

	report, err := build.New(project(), dst, build.WithInlineSubtrees(true)).Run(ctx)
	require.NoError(t, err)
	require.Contains(t, report.Warnings, "main.json")
	assert.ErrorIs(t, report.Warnings["main.json"], domain.ErrMissingSubtree)

	out, err := dst.Read(ctx, "main.json")
	require.NoError(t, err)
	inlined := out.Root.Children[1]
	assert.Empty(t, inlined.Path)
	require.Len(t, inlined.Children, 2)
	assert.Equal(t, "Wait", inlined.Children[0].Name)

	missing := out.Root.Children[2]
	assert.Equal(t, "gone.json", missing.Path, "unresolved references are kept")
	assert.Equal(t, 6, tree.Count(out.Root))
}

func TestBuilder_Failures(t *testing.T) {
	ctx := context.Background()
	dst := memory.NewStore()
	boom := errors.New("boom")

	nodes := registry.NewRegistry()
	nodes.Register("Wait", func(context.Context, *domain.Document, *domain.Node) error { return boom })

	b := build.New(project(), dst,
		build.WithRegistry(nodes),
		build.WithFilter(func(p string) bool { return strings.HasPrefix(p, "p") || p == "main.json" }),
	)
	report, err := b.Run(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"main.json"}, report.Built)
	assert.Contains(t, report.Failed, "patrol.json")

	_, err = dst.Read(ctx, "patrol.json")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "failed documents are not written")
}

func TestBuilder_Filter(t *testing.T) {
	report, err := build.New(project(), memory.NewStore(),
		build.WithFilter(func(p string) bool { return p == "patrol.json" }),
	).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"patrol.json"}, report.Built)
	assert.Equal(t, []string{"main.json"}, report.Skipped)
}

func TestBuilder_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := build.New(project(), memory.NewStore()).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
