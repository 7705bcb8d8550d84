package schema

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
)

func TestForDefinition(t *testing.T) {
	def := domain.Definition{
		Name: "Move",
		Args: []domain.ArgDef{
			{Name: "speed", Type: "float"},
			{Name: "target", Type: "expr", Optional: true},
		},
	}
	s := ForDefinition(def)
	if len(s) != 2 {
		t.Fatalf("ForDefinition() = %d entries, want 2", len(s))
	}
	if got := s["target"].Name(); got != "expr?" {
		t.Errorf("optional flag should wrap the type, got %q", got)
	}
}

func TestValidate_Success(t *testing.T) {
	s := Schema{
		"message": String(),
		"count":   Int(),
		"tags":    Slice(String()),
	}
	data := map[string]any{
		"message": "hello",
		"count":   3.0,
		"tags":    []any{"a", "b"},
	}
	if err := Validate(s, data); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_MissingIsIgnored(t *testing.T) {
	s := Schema{"message": String(), "count": Int()}
	if err := Validate(s, map[string]any{"message": "hi"}); err != nil {
		t.Errorf("missing arguments are reported by binding, got %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	s := Schema{"count": Int()}
	data := map[string]any{
		"count": "three",
		"extra": true,
	}

	err := Validate(s, data)
	if err == nil {
		t.Fatal("Validate() should fail")
	}
	errs := ValidationErrors(err)
	if len(errs) != 2 {
		t.Fatalf("Validate() = %d errors, want 2", len(errs))
	}

	first, ok := errs[0].(*ValidationError)
	if !ok {
		t.Fatalf("error should be *ValidationError, got %T", errs[0])
	}
	if first.Key != "count" {
		t.Errorf("errors must be sorted by key, first = %q", first.Key)
	}
	second := errs[1].(*ValidationError)
	if second.Key != "extra" || second.Reason != "not declared" {
		t.Errorf("unexpected second error %v", second)
	}
	if !strings.Contains(err.Error(), "2 validation errors") {
		t.Errorf("aggregate message = %q", err.Error())
	}
}

func TestCheckTree(t *testing.T) {
	catalog := memory.NewCatalog(memory.Builtins()...)
	root := &domain.Node{Name: "Sequence", Children: []*domain.Node{
		{Name: "Log", Args: map[string]any{"message": "ok"}},
		{Name: "Repeat", Args: map[string]any{"count": "many"}, Children: []*domain.Node{
			{Name: "Mystery", Args: map[string]any{"anything": 1}},
		}},
		{Name: "SubTree", Path: "other.json", Children: []*domain.Node{
			{Name: "Log", Args: map[string]any{"message": 1.0}},
		}},
	}}
	tree.Renumber(root)

	problems := CheckTree(root, catalog)
	if len(problems) != 1 {
		t.Fatalf("CheckTree() = %v, want one problem", problems)
	}
	p := problems[0]
	if p.NodeID != "3" || p.Code != ProblemArgType {
		t.Errorf("unexpected problem %+v", p)
	}

	if CheckTree(root, nil) != nil {
		t.Error("no catalog, no problems")
	}
}
