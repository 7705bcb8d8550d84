package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
)

func sample() *domain.Node {
	return &domain.Node{ID: "1", Name: "Sequence", Children: []*domain.Node{
		{ID: "2", Name: "Inverter", Children: []*domain.Node{
			{ID: "3", Name: "Check", Tags: domain.Tags{Match: domain.MatchHit, Var: domain.VarRead}},
		}},
		{ID: "4", Name: "SubTree", Path: "sub/a-b.json", Children: []*domain.Node{
			{ID: "5", Name: "Log", Desc: `say "hi"`, Disabled: true, Tags: domain.Tags{Match: domain.MatchDimmed}},
		}},
		{ID: "6", Name: "Unknown", Flag: &domain.Flag{Kind: domain.FlagCycle, Message: `cycle via "x.json"`}},
	}}
}

func TestGenerateMermaid(t *testing.T) {
	catalog := memory.NewCatalog(memory.Builtins()...)

	tests := []struct {
		name     string
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Shapes",
			contains: []string{
				`n1(["1: Sequence"])`,
				`n2{{"2: Inverter"}}`,
				`n3{"3: Check"}`,
				`n4[["4: SubTree <br/> sub/a-b.json"]]`,
				`n5["5: Log"]`,
				`n6>"6: Unknown <br/> ⚠ cycle via 'x.json'"]`,
			},
			excludes: []string{"classDef"},
		},
		{
			name: "Edges",
			contains: []string{
				"n1 --> n2",
				"n2 --> n3",
				"n1 --> n4",
				"n4 -.-> n5",
			},
		},
		{
			name:    "Selection Only",
			overlay: &graph.GraphOverlay{Selected: "2"},
			contains: []string{
				"classDef selected",
				"class n2 selected;",
				"class n6 flagged;",
				"class n5 disabled;",
			},
			excludes: []string{"class n3 hit;"},
		},
		{
			name:    "Highlights",
			overlay: &graph.GraphOverlay{Highlights: true},
			contains: []string{
				"class n3 hit;",
				"class n3 read;",
				"class n5 dimmed;",
			},
			excludes: []string{"selected;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(sample(), catalog, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("GenerateMermaid() = \n%v\nUnexpected substring: %v", got, unwanted)
				}
			}
		})
	}
}

func TestGenerateMermaid_Empty(t *testing.T) {
	if got := graph.GenerateMermaid(nil, nil, nil); got != "graph TD\n" {
		t.Errorf("GenerateMermaid(nil) = %q", got)
	}
}
