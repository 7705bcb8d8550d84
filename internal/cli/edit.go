package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/edit"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/xref"
)

// errQuit ends an edit session.
var errQuit = errors.New("quit")

// EditOptions configure an edit session.
type EditOptions struct {
	// Create makes a new document when path does not exist.
	Create bool
	// Save writes the document when the script ends without error.
	Save bool
	// Echo prints the tree after every command, for interactive use.
	Echo bool
}

const editHelp = `Commands:
  insert <target>               append a new node under target
  delete <id>                   remove a node and its children
  copy <id>                     copy a node to the clipboard
  paste <target>                append the clipboard under target
  replace <id>                  overwrite a node with the clipboard
  move <src> <before|after|child> <dst>
  rename <id> <name>            change a node's type
  set <id> <arg> <value>        set an argument (JSON or plain text)
  unset <id> <arg>              remove an argument
  desc <id> <text>              set a node's description
  path <id> <document>          make a node transclude another document
  disable <id> | enable <id>
  select <id>
  search <text> | next | prev
  vars [names...]               highlight variable uses, or clear
  undo | redo
  show | save | quit | help`

// RunNew creates and stores an empty document at path.
func RunNew(ctx context.Context, p *Project, path, name string, w io.Writer) error {
	e, err := p.Workspace.Create(ctx, path, name)
	if err != nil {
		return err
	}
	printSystemMessage(w, "Created '%s'.", e.Path())
	return nil
}

// RunEdit applies the commands read from script to the document at path.
// Commands are applied in order; the first failing command stops the session
// unless opts.Echo is set, in which case the error is printed instead.
func RunEdit(ctx context.Context, p *Project, path string, script io.Reader, w io.Writer, opts EditOptions) error {
	e, err := openForEdit(ctx, p, path, opts.Create)
	if err != nil {
		return err
	}
	s := &session{p: p, e: e, w: w, echo: opts.Echo}

	scanner := bufio.NewScanner(script)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		err := s.run(ctx, text)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			if opts.Echo {
				printSystemMessage(w, "%v", err)
				continue
			}
			return fmt.Errorf("line %d (%s): %w", line, strings.TrimSpace(text), err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return s.finish(ctx, opts.Save)
}

func openForEdit(ctx context.Context, p *Project, path string, create bool) (*editor.Editor, error) {
	e, err := p.Workspace.Open(ctx, path)
	if err != nil && create && errors.Is(err, domain.ErrDocumentNotFound) {
		e, err = p.Workspace.Create(ctx, path, "")
	}
	return e, err
}

type session struct {
	p    *Project
	e    *editor.Editor
	w    io.Writer
	echo bool

	// mu orders commands against the final save when lines arrive from
	// the terminal router.
	mu sync.Mutex
}

// run executes one command line. Blank lines and comments are skipped.
func (s *session) run(ctx context.Context, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := strings.TrimSpace(line)
	if text == "" || strings.HasPrefix(text, "#") {
		return nil
	}
	if err := s.exec(ctx, text); err != nil {
		return err
	}
	if s.echo && text != "show" && text != "help" {
		s.show()
	}
	return nil
}

// finish saves the document when save is set and it has unsaved changes.
func (s *session) finish(ctx context.Context, save bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !save || !s.e.Dirty() {
		return nil
	}
	if err := s.p.Workspace.Save(ctx, s.e.Path()); err != nil {
		return err
	}
	printSystemMessage(s.w, "Saved '%s'.", s.e.Path())
	return nil
}

func (s *session) show() {
	selected := s.e.Selected()
	s.e.View(func(doc *domain.Document) {
		fmt.Fprint(s.w, tui.RenderTree(doc.Root, s.p.Workspace.Catalog(),
			tui.WithProfile(colorProfile(s.w)),
			tui.WithSelected(selected),
		))
	})
}

func (s *session) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s)", cmd, n)
		}
		return nil
	}
	// rest joins the arguments after the first n, keeping their spacing.
	rest := func(n int) string {
		out := strings.TrimSpace(line)
		for range n + 1 {
			out = strings.TrimSpace(out[strings.IndexAny(out, " \t")+1:])
		}
		return out
	}
	patch := func(p dto.NodePatch) error {
		if err := need(1); err != nil {
			return err
		}
		return s.e.UpdateNode(ctx, args[0], p.Apply)
	}

	switch cmd {
	case "insert":
		if err := need(1); err != nil {
			return err
		}
		id, err := s.e.Insert(ctx, args[0])
		if err == nil {
			printSystemMessage(s.w, "Inserted %s.", id)
		}
		return err
	case "delete":
		if err := need(1); err != nil {
			return err
		}
		return s.e.Delete(ctx, args[0])
	case "copy":
		if err := need(1); err != nil {
			return err
		}
		return s.e.Copy(ctx, args[0])
	case "paste":
		if err := need(1); err != nil {
			return err
		}
		id, err := s.e.Paste(ctx, args[0])
		if err == nil {
			printSystemMessage(s.w, "Pasted %s.", id)
		}
		return err
	case "replace":
		if err := need(1); err != nil {
			return err
		}
		return s.e.Replace(ctx, args[0])
	case "move":
		if err := need(3); err != nil {
			return err
		}
		zone, err := edit.ParseZone(args[1])
		if err != nil {
			return err
		}
		return s.e.Move(ctx, args[0], args[2], zone)
	case "rename":
		if err := need(2); err != nil {
			return err
		}
		name := args[1]
		return patch(dto.NodePatch{Name: &name})
	case "set":
		if err := need(3); err != nil {
			return err
		}
		return patch(dto.NodePatch{Args: map[string]any{args[1]: parseValue(rest(2))}})
	case "unset":
		if err := need(2); err != nil {
			return err
		}
		return patch(dto.NodePatch{Args: map[string]any{args[1]: nil}})
	case "desc":
		if err := need(2); err != nil {
			return err
		}
		desc := rest(1)
		return patch(dto.NodePatch{Desc: &desc})
	case "path":
		if err := need(2); err != nil {
			return err
		}
		return patch(dto.NodePatch{Path: &args[1]})
	case "disable", "enable":
		disabled := cmd == "disable"
		return patch(dto.NodePatch{Disabled: &disabled})
	case "select":
		if err := need(1); err != nil {
			return err
		}
		return s.e.Select(args[0])
	case "search":
		q := xref.Query{Focus: true}
		if len(args) > 0 {
			q.Text = rest(0)
		}
		ids := s.e.Search(q)
		printSystemMessage(s.w, "%d match(es).", len(ids))
		return nil
	case "next", "prev":
		step := s.e.Next
		if cmd == "prev" {
			step = s.e.Prev
		}
		if _, ok := step(); !ok {
			return errors.New("no search matches")
		}
		return nil
	case "vars":
		refs := s.e.HighlightVariables(args)
		for _, r := range refs {
			fmt.Fprintf(s.w, "%s\t%s\t%s\n", r.NodeID, r.Name, r.Kind)
		}
		return nil
	case "undo":
		return s.e.Undo(ctx)
	case "redo":
		return s.e.Redo(ctx)
	case "show":
		s.show()
		return nil
	case "save":
		if err := s.p.Workspace.Save(ctx, s.e.Path()); err != nil {
			return err
		}
		printSystemMessage(s.w, "Saved '%s'.", s.e.Path())
		return nil
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(s.w, editHelp)
		return nil
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

// parseValue reads v as JSON and falls back to the raw text.
func parseValue(v string) any {
	var out any
	if err := json.Unmarshal([]byte(v), &out); err == nil {
		return out
	}
	return v
}
