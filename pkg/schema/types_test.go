package schema

import (
	"encoding/json"
	"testing"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		name string
	}{
		{"string", "string"},
		{"int", "int"},
		{"float?", "float?"},
		{"expr", "expr"},
		{"code[]", "code[]"},
		{"[int]", "int[]"},
		{"json?", "json?"},
		{"vector3", "vector3"},
		{"", "any"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseType(tt.in).Name(); got != tt.name {
				t.Errorf("ParseType(%q).Name() = %q, want %q", tt.in, got, tt.name)
			}
		})
	}
}

func TestTypes_Validate(t *testing.T) {
	tests := []struct {
		typ     string
		value   any
		wantErr bool
	}{
		{"string", "hi", false},
		{"string", 3.0, true},
		{"int", 3.0, false},
		{"int", 3.5, true},
		{"int", json.Number("42"), false},
		{"int", json.Number("4.2"), true},
		{"int", "3", true},
		{"float", 2, false},
		{"float", "2", true},
		{"bool", true, false},
		{"bool", "true", true},
		{"expr", "x > 1", false},
		{"expr", 1.0, true},
		{"float?", nil, false},
		{"float", nil, true},
		{"expr[]", []any{"a", "b"}, false},
		{"expr[]", []any{"a", 2.0}, true},
		{"[int]", "1,2", true},
		{"json", map[string]any{"a": 1}, false},
		{"vector3", []any{1, 2, 3}, false},
	}
	for _, tt := range tests {
		err := ParseType(tt.typ).Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%#v) error = %v, wantErr %v", tt.typ, tt.value, err, tt.wantErr)
		}
	}
}
