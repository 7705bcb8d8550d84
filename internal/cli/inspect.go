package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/aretw0/arbor/pkg/xref"
)

// ViewOptions select what the tree and graph commands highlight.
type ViewOptions struct {
	Search string
	ByID   bool
	Vars   []string
	// Inline renders transcluded content as if it were local.
	Inline bool
	Args   bool
	// Describe renders the document description above the tree.
	Describe bool
	JSON     bool
}

// highlight opens path and applies the search and variable highlights.
func highlight(ctx context.Context, p *Project, path string, opts ViewOptions) (*editor.Editor, error) {
	e, err := p.Workspace.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if opts.Search != "" {
		q := xref.Query{Text: opts.Search, Focus: true}
		if opts.ByID {
			q.Mode = xref.ModeID
		}
		e.Search(q)
		if id, ok := e.Next(); ok {
			p.Logger.Debug("First match", "id", id)
		}
	}
	if len(opts.Vars) > 0 {
		e.HighlightVariables(opts.Vars)
	}
	return e, nil
}

func document(e *editor.Editor, inline bool) *domain.Document {
	if inline {
		return e.Inlined()
	}
	return e.Document()
}

// RunTree prints a document as an outline, or as JSON.
func RunTree(ctx context.Context, p *Project, path string, opts ViewOptions, w io.Writer) error {
	e, err := highlight(ctx, p, path, opts)
	if err != nil {
		return err
	}
	catalog := p.Workspace.Catalog()
	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(dto.ViewEditor(e, catalog))
	}

	doc := document(e, opts.Inline)
	if opts.Describe && doc.Desc != "" {
		out, err := tui.NewRenderer()("# " + doc.Name + "\n\n" + doc.Desc)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	}
	selected := ""
	if opts.Search != "" {
		selected = e.Selected()
	}
	fmt.Fprint(w, tui.RenderTree(doc.Root, catalog,
		tui.WithProfile(colorProfile(w)),
		tui.WithSelected(selected),
		tui.WithArgs(opts.Args),
	))
	if err := e.Resolution(); err != nil {
		printSystemMessage(w, "Unresolved subtrees: %v", err)
	}
	return nil
}

// RunGraph prints a document as a Mermaid flowchart.
func RunGraph(ctx context.Context, p *Project, path string, opts ViewOptions, w io.Writer) error {
	e, err := highlight(ctx, p, path, opts)
	if err != nil {
		return err
	}
	var overlay *graph.GraphOverlay
	if opts.Search != "" || len(opts.Vars) > 0 {
		overlay = &graph.GraphOverlay{Highlights: true, Selected: e.Selected()}
	}
	fmt.Fprint(w, graph.GenerateMermaid(document(e, opts.Inline).Root, p.Workspace.Catalog(), overlay))
	return nil
}

// RunValidate checks every given document, or all of them when paths is
// empty, and returns the number of problems found. Unresolved subtrees
// count as problems.
func RunValidate(ctx context.Context, p *Project, paths []string, w io.Writer) (int, error) {
	if len(paths) == 0 {
		all, err := p.Workspace.Documents(ctx)
		if err != nil {
			return 0, err
		}
		paths = all
	}

	total := 0
	for _, path := range paths {
		problems, err := p.Workspace.Validate(ctx, path)
		if problems == nil && err != nil && !isResolution(err) {
			return total, fmt.Errorf("%s: %w", path, err)
		}
		for _, pr := range problems {
			fmt.Fprintf(w, "%s: %s\n", path, pr)
		}
		total += len(problems)
		if len(problems) == 0 && err == nil {
			fmt.Fprintf(w, "%s: ok\n", path)
		}
	}
	return total, nil
}

func isResolution(err error) bool {
	var se *domain.SubtreeError
	return errors.As(err, &se)
}

// RunSearch prints the nodes matching text.
func RunSearch(ctx context.Context, p *Project, path string, opts ViewOptions, w io.Writer) (int, error) {
	e, err := p.Workspace.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	var ids []string
	if opts.Search != "" {
		q := xref.Query{Text: opts.Search}
		if opts.ByID {
			q.Mode = xref.ModeID
		}
		ids = e.Search(q)
	}
	doc := e.Document()
	for _, id := range ids {
		fmt.Fprintln(w, describeNode(doc, id))
	}
	return len(ids), nil
}

// RunVars prints the nodes using names, or every variable in use when names
// is empty.
func RunVars(ctx context.Context, p *Project, path string, names []string, w io.Writer) error {
	e, err := p.Workspace.Open(ctx, path)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		for _, v := range e.UsedVariables() {
			fmt.Fprintln(w, v)
		}
		return nil
	}
	for _, ref := range e.HighlightVariables(names) {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ref.NodeID, ref.Name, ref.Kind)
	}
	return nil
}

func describeNode(doc *domain.Document, id string) string {
	var names []string
	for _, n := range tree.PathTo(doc.Root, id) {
		names = append(names, n.Name)
	}
	return id + "\t" + strings.Join(names, " > ")
}
