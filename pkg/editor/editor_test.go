package editor_test

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/edit"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/transclusion"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/xref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logWait() *domain.Document {
	doc := domain.NewDocument("main")
	doc.Root.Children = []*domain.Node{
		{Name: "Log", Args: map[string]any{"message": "hello"}},
		{Name: "Wait", Input: []string{"delay"}},
	}
	return doc
}

func attack() *domain.Document {
	doc := domain.NewDocument("attack")
	doc.Root.Children = []*domain.Node{
		{Name: "Check", Args: map[string]any{"value": "hp > 0"}},
	}
	return doc
}

type recorder struct {
	events []*domain.ChangeEvent
}

func (r *recorder) hooks() domain.Hooks {
	return domain.Hooks{OnChange: func(_ context.Context, e *domain.ChangeEvent) {
		r.events = append(r.events, e)
	}}
}

func (r *recorder) types() []domain.EventType {
	var out []domain.EventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func open(t *testing.T, doc *domain.Document, opts ...editor.Option) (*editor.Editor, *memory.Store) {
	t.Helper()
	store := memory.NewStoreFromDocuments(map[string]*domain.Document{
		"main.json":   doc,
		"attack.json": attack(),
	})
	opts = append([]editor.Option{editor.WithCatalog(memory.NewCatalog(memory.Builtins()...))}, opts...)
	e, err := editor.New(context.Background(), "main.json", doc, transclusion.New(store), opts...)
	require.NoError(t, err)
	return e, store
}

func shape(doc *domain.Document) []string {
	var out []string
	tree.Walk(doc.Root, func(n *domain.Node) bool {
		out = append(out, n.ID+":"+n.Name)
		return true
	})
	return out
}

func TestDeleteThenUndo(t *testing.T) {
	ctx := context.Background()
	e, _ := open(t, logWait())
	assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait"}, shape(e.Document()))

	require.NoError(t, e.Delete(ctx, "2"))
	assert.Equal(t, []string{"1:Sequence", "2:Wait"}, shape(e.Document()))
	assert.Equal(t, "1", e.Selected(), "parent is selected after delete")
	assert.True(t, e.Dirty())

	require.NoError(t, e.Undo(ctx))
	doc := e.Document()
	assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait"}, shape(doc))
	assert.Equal(t, "hello", doc.Root.Children[0].Args["message"])
	assert.False(t, e.Dirty())

	require.NoError(t, e.Redo(ctx))
	assert.Equal(t, []string{"1:Sequence", "2:Wait"}, shape(e.Document()))
}

func TestRootDeleteRejected(t *testing.T) {
	rec := &recorder{}
	e, _ := open(t, logWait(), editor.WithHooks(rec.hooks()))

	err := e.Delete(context.Background(), "1")
	require.ErrorIs(t, err, domain.ErrInvalidTarget)
	assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait"}, shape(e.Document()))
	assert.False(t, e.CanUndo())
	assert.Equal(t, []domain.EventType{domain.EventReject}, rec.types())
	assert.ErrorIs(t, rec.events[0].Err, domain.ErrInvalidTarget)
}

func TestInsert(t *testing.T) {
	ctx := context.Background()
	e, _ := open(t, logWait(), editor.WithDefaultNode("Selector"))

	id, err := e.Insert(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "4", id)
	assert.Equal(t, "4", e.Selected())
	assert.Equal(t, "Selector", e.Document().Root.Children[2].Name)

	// Inserting under a leaf yields a children-count diagnostic, not a rejection.
	_, err = e.Insert(ctx, "2")
	require.NoError(t, err)
	problems := e.Problems()
	require.Len(t, problems, 1)
	assert.Equal(t, "2", problems[0].NodeID)
	assert.Equal(t, string(domain.DiagChildrenCount), problems[0].Code)
}

func TestCopyPasteReplace(t *testing.T) {
	ctx := context.Background()
	clip := memory.NewClipboard()
	e, _ := open(t, logWait(), editor.WithClipboard(clip))

	require.NoError(t, e.Copy(ctx, "2"))
	id, err := e.Paste(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "4", id)
	assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait", "4:Log"}, shape(e.Document()))

	require.NoError(t, e.Copy(ctx, "3"))
	require.NoError(t, e.Replace(ctx, "2"))
	assert.Equal(t, []string{"1:Sequence", "2:Wait", "3:Wait", "4:Log"}, shape(e.Document()))

	t.Run("Corrupt clipboard aborts only the paste", func(t *testing.T) {
		require.NoError(t, clip.Write(ctx, []byte("{oops")))
		before := e.StorageForm()

		_, err := e.Paste(ctx, "1")
		require.ErrorIs(t, err, domain.ErrSerialization)
		assert.Equal(t, before, e.StorageForm())

		require.NoError(t, e.Undo(ctx), "history still points at the last good edit")
		assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait", "4:Log"}, shape(e.Document()))
	})
}

func TestPasteSubtreeExpands(t *testing.T) {
	ctx := context.Background()
	clip := memory.NewClipboard()
	e, _ := open(t, logWait(), editor.WithClipboard(clip))

	require.NoError(t, clip.Write(ctx, []byte(`{"name":"SubTree","path":"attack.json"}`)))
	_, err := e.Paste(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait", "4:SubTree", "5:Check"}, shape(e.Document()))
	assert.Equal(t, []string{"attack.json"}, e.SubtreePaths())

	// Transcluded content never reaches storage.
	assert.Empty(t, e.StorageForm().Root.Children[2].Children)

	inlined := e.Inlined()
	assert.Empty(t, inlined.Root.Children[2].Path)
	assert.Equal(t, "Check", inlined.Root.Children[2].Children[0].Name)

	t.Run("Self reference is flagged", func(t *testing.T) {
		require.NoError(t, clip.Write(ctx, []byte(`{"name":"SubTree","path":"main.json"}`)))
		id, err := e.Paste(ctx, "1")
		require.NoError(t, err)
		assert.ErrorIs(t, e.Resolution(), domain.ErrCycleDetected)

		doc := e.Document()
		flagged := tree.Find(doc.Root, id)
		require.NotNil(t, flagged.Flag)
		assert.Equal(t, domain.FlagCycle, flagged.Flag.Kind)
	})
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	doc := logWait()
	doc.Root.Children = append(doc.Root.Children, &domain.Node{Name: "Selector", Children: []*domain.Node{
		{Name: "Log", Args: map[string]any{"message": "inner"}},
	}})
	e, _ := open(t, doc)
	// 1 Sequence, 2 Log, 3 Wait, 4 Selector, 5 Log

	t.Run("Onto descendant leaves the tree unchanged", func(t *testing.T) {
		before := e.StorageForm()
		err := e.Move(ctx, "4", "5", edit.ZoneChild)
		require.ErrorIs(t, err, domain.ErrCycleDetected)
		assert.Equal(t, before, e.StorageForm())
		assert.False(t, e.CanUndo())
	})

	t.Run("Into composite", func(t *testing.T) {
		require.NoError(t, e.Move(ctx, "2", "4", edit.ZoneChild))
		assert.Equal(t, []string{"1:Sequence", "2:Wait", "3:Selector", "4:Log", "5:Log"}, shape(e.Document()))
		assert.Equal(t, "5", e.Selected(), "the moved node keeps the selection")
	})

	t.Run("Drop before", func(t *testing.T) {
		zone, err := e.Drop(ctx, "5", "2", edit.Rect{Width: 10, Height: 10}, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, edit.ZoneBefore, zone)
		assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait", "4:Selector", "5:Log"}, shape(e.Document()))
		assert.Equal(t, "hello", e.Document().Root.Children[0].Args["message"])
	})
}

func TestUpdateNode(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	e, _ := open(t, logWait(), editor.WithHooks(rec.hooks()))

	t.Run("Unchanged field does not grow history", func(t *testing.T) {
		require.NoError(t, e.UpdateNode(ctx, "2", func(n *domain.Node) {
			n.Args["message"] = "hello"
		}))
		assert.False(t, e.CanUndo())
		assert.False(t, e.Dirty())
		assert.Empty(t, rec.events)
	})

	t.Run("Field edit", func(t *testing.T) {
		require.NoError(t, e.UpdateNode(ctx, "2", func(n *domain.Node) {
			n.Desc = "greet"
			n.Debug = true
		}))
		assert.True(t, e.CanUndo())
		n := e.Document().Root.Children[0]
		assert.Equal(t, "greet", n.Desc)
		assert.True(t, n.Debug)
		assert.Equal(t, []domain.EventType{domain.EventChange}, rec.types())
	})

	t.Run("Path change expands", func(t *testing.T) {
		require.NoError(t, e.UpdateNode(ctx, "3", func(n *domain.Node) {
			n.Name = "SubTree"
			n.Input = nil
			n.Path = "attack.json"
		}))
		assert.Equal(t, []string{"1:Sequence", "2:Log", "3:SubTree", "4:Check"}, shape(e.Document()))
		assert.Empty(t, e.Problems())
	})

	t.Run("Document metadata", func(t *testing.T) {
		require.NoError(t, e.UpdateDocument(ctx, func(doc *domain.Document) {
			doc.Desc = "entry point"
			doc.Vars = []domain.Variable{{Name: "hp"}, {Name: ""}}
			doc.Root = nil
		}))
		doc := e.Document()
		assert.Equal(t, "entry point", doc.Desc)
		assert.Equal(t, []domain.Variable{{Name: "hp"}}, doc.Vars)
		require.NotNil(t, doc.Root)
	})
}

func TestUndoRedoFieldForField(t *testing.T) {
	ctx := context.Background()
	e, _ := open(t, logWait())
	original := e.StorageForm()

	_, err := e.Insert(ctx, "1")
	require.NoError(t, err)
	require.NoError(t, e.UpdateNode(ctx, "4", func(n *domain.Node) { n.Name = "Log"; n.Args = map[string]any{"message": "x"} }))
	require.NoError(t, e.Move(ctx, "4", "2", edit.ZoneBefore))
	edited := e.StorageForm()

	for e.CanUndo() {
		require.NoError(t, e.Undo(ctx))
	}
	assert.Equal(t, original, e.StorageForm())
	assert.ErrorIs(t, e.Undo(ctx), domain.ErrNothingToUndo)

	for e.CanRedo() {
		require.NoError(t, e.Redo(ctx))
	}
	assert.Equal(t, edited, e.StorageForm())
	assert.ErrorIs(t, e.Redo(ctx), domain.ErrNothingToRedo)
}

func TestHighlightsFollowEdits(t *testing.T) {
	ctx := context.Background()
	e, _ := open(t, logWait())

	ids := e.Search(xref.Query{Text: "log", Focus: true})
	assert.Equal(t, []string{"2"}, ids)

	id, ok := e.Next()
	require.True(t, ok)
	assert.Equal(t, "2", id)
	assert.Equal(t, "2", e.Selected())

	refs := e.HighlightVariables([]string{"delay"})
	require.Len(t, refs, 1)
	assert.Equal(t, "3", refs[0].NodeID)

	// Deleting the match renumbers; the active search and highlight are re-applied.
	require.NoError(t, e.Delete(ctx, "2"))
	doc := e.Document()
	assert.Equal(t, domain.MatchDimmed, doc.Root.Children[0].Tags.Match)
	assert.Equal(t, domain.VarRead, doc.Root.Children[0].Tags.Var)
	_, ok = e.Next()
	assert.False(t, ok)

	require.NoError(t, e.Undo(ctx))
	doc = e.Document()
	assert.Equal(t, domain.MatchHit, doc.Root.Children[0].Tags.Match)
	assert.Equal(t, domain.VarUnrelated, doc.Root.Children[0].Tags.Var)

	e.ClearHighlights()
	tree.Walk(e.Document().Root, func(n *domain.Node) bool {
		assert.Equal(t, domain.Tags{}, n.Tags)
		return true
	})
	assert.Nil(t, e.Search(xref.Query{}))
}

func TestStaleReload(t *testing.T) {
	ctx := context.Background()
	doc := logWait()
	doc.Root.Children = append(doc.Root.Children, &domain.Node{Name: "SubTree", Path: "attack.json"})
	e, store := open(t, doc)

	assert.False(t, e.IsStale(ctx))
	reloaded, err := e.ReloadIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, reloaded)

	changed := attack()
	changed.Root.Children = append(changed.Root.Children, &domain.Node{Name: "Log", Args: map[string]any{"message": "hit"}})
	require.NoError(t, store.Write(ctx, "attack.json", changed))
	assert.True(t, e.IsStale(ctx))

	reloaded, err = e.ReloadIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, reloaded)
	assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait", "4:SubTree", "5:Check", "6:Log"}, shape(e.Document()))
	assert.False(t, e.IsStale(ctx))
	assert.False(t, e.Dirty(), "reload does not touch the storage form")

	store.Delete("attack.json")
	assert.True(t, e.IsStale(ctx))
	err = e.Reload(ctx)
	assert.ErrorIs(t, err, domain.ErrMissingSubtree)
	assert.Equal(t, []string{"1:Sequence", "2:Log", "3:Wait", "4:SubTree"}, shape(e.Document()))
}

func TestStaleReload_KeepsCoalescing(t *testing.T) {
	ctx := context.Background()
	doc := domain.NewDocument("main")
	doc.Root.Children = []*domain.Node{
		{Name: "SubTree", Path: "attack.json"},
		{Name: "Log", Args: map[string]any{"message": "after"}},
	}
	e, store := open(t, doc)
	assert.Equal(t, []string{"1:Sequence", "2:SubTree", "3:Check", "4:Log"}, shape(e.Document()))

	bigger := attack()
	bigger.Root.Children = append(bigger.Root.Children, &domain.Node{Name: "Wait"})
	require.NoError(t, store.Write(ctx, "attack.json", bigger))
	reloaded, err := e.ReloadIfStale(ctx)
	require.NoError(t, err)
	require.True(t, reloaded)
	assert.Equal(t, []string{"1:Sequence", "2:SubTree", "3:Check", "4:Wait", "5:Log"}, shape(e.Document()))

	require.NoError(t, e.UpdateNode(ctx, "5", func(*domain.Node) {}))
	assert.False(t, e.Dirty())
	assert.False(t, e.CanUndo())

	require.NoError(t, e.UpdateNode(ctx, "5", func(n *domain.Node) { n.Desc = "tail" }))
	assert.True(t, e.Dirty())
	require.NoError(t, e.Undo(ctx))
	assert.False(t, e.Dirty())
	assert.Equal(t, []string{"1:Sequence", "2:SubTree", "3:Check", "4:Wait", "5:Log"}, shape(e.Document()))
}

func TestSelect(t *testing.T) {
	e, _ := open(t, logWait())
	require.NoError(t, e.Select("3"))
	assert.Equal(t, "3", e.Selected())
	assert.ErrorIs(t, e.Select("9"), domain.ErrNodeNotFound)
	assert.Equal(t, []string{"delay"}, e.UsedVariables())
}

func TestRebind(t *testing.T) {
	e, _ := open(t, logWait())
	assert.Empty(t, e.Problems())

	e.Rebind(memory.NewCatalog())
	assert.Len(t, e.Problems(), 3, "every node is unknown to an empty catalog")
}
