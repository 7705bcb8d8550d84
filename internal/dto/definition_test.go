package dto

import (
	"encoding/json"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArg(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    domain.ArgDef
		wantErr bool
	}{
		{"Shorthand", "count:int", domain.ArgDef{Name: "count", Type: "int"}, false},
		{"Shorthand optional", "time: float?", domain.ArgDef{Name: "time", Type: "float?", Optional: true}, false},
		{"Bare name", "message", domain.ArgDef{Name: "message", Type: "string"}, false},
		{"Map", map[string]any{"name": "value", "type": "expr", "desc": "condition"}, domain.ArgDef{Name: "value", Type: "expr", Desc: "condition"}, false},
		{"Map optional flag", map[string]any{"name": "x", "optional": "true"}, domain.ArgDef{Name: "x", Type: "string", Optional: true}, false},
		{"Map without name", map[string]any{"type": "int"}, domain.ArgDef{}, true},
		{"Empty shorthand", ":int", domain.ArgDef{}, true},
		{"Wrong type", 42, domain.ArgDef{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArg(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToDefinition(t *testing.T) {
	meta, err := DecodeDefinition(map[string]any{
		"name":   "Repeat",
		"type":   "decorator",
		"args":   []any{"count:int"},
		"output": []any{"iteration"},
	})
	require.NoError(t, err)

	def, err := meta.ToDefinition("Repeats its child")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryDecorator, def.Category)
	assert.Equal(t, 1, def.Children, "decorators default to one child")
	assert.Equal(t, "Repeats its child", def.Desc)
	assert.Equal(t, []string{"iteration"}, def.Output)
	require.Len(t, def.Args, 1)
	assert.Equal(t, "int", def.Args[0].Type)

	children := []struct {
		raw  any
		want int
	}{
		{json.Number("2"), 2},
		{"unbounded", domain.ChildrenUnbounded},
		{0, 0},
		{float64(3), 3},
	}
	for _, c := range children {
		meta.Children = c.raw
		def, err := meta.ToDefinition("")
		require.NoError(t, err)
		assert.Equal(t, c.want, def.Children, "children %v", c.raw)
	}

	_, err = DefinitionMetadata{Type: "action"}.ToDefinition("")
	assert.Error(t, err)
}
