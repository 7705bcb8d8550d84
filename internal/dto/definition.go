package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DefinitionMetadata is the on-disk shape of a node definition, or of a
// library of definitions when Nodes is set.
// It uses "mapstructure" tags to match frontmatter/YAML keys.
type DefinitionMetadata struct {
	Name     string   `json:"name" mapstructure:"name"`
	Type     string   `json:"type" mapstructure:"type"`
	Desc     string   `json:"desc" mapstructure:"desc"`
	Args     []any    `json:"args" mapstructure:"args"`
	Input    []string `json:"input" mapstructure:"input"`
	Output   []string `json:"output" mapstructure:"output"`
	Children any      `json:"children" mapstructure:"children"`

	// Nodes lists inline definitions (maps) or imports of other libraries (strings).
	Nodes []any `json:"nodes" mapstructure:"nodes"`
}

// IsLibrary reports whether the document groups several definitions.
func (m DefinitionMetadata) IsLibrary() bool {
	return len(m.Nodes) > 0
}

// ToDefinition converts the metadata into a catalog definition. desc is
// used when the metadata carries no description of its own.
func (m DefinitionMetadata) ToDefinition(desc string) (domain.Definition, error) {
	if m.Name == "" {
		return domain.Definition{}, fmt.Errorf("definition missing name")
	}
	def := domain.Definition{
		Name:     m.Name,
		Category: normalizeCategory(m.Type),
		Desc:     m.Desc,
		Input:    m.Input,
		Output:   m.Output,
	}
	if def.Desc == "" {
		def.Desc = strings.TrimSpace(desc)
	}
	for i, raw := range m.Args {
		arg, err := ParseArg(raw)
		if err != nil {
			return domain.Definition{}, fmt.Errorf("%s.args[%d]: %w", m.Name, i, err)
		}
		def.Args = append(def.Args, arg)
	}
	children, err := parseChildren(m.Children, def.Category)
	if err != nil {
		return domain.Definition{}, fmt.Errorf("%s.children: %w", m.Name, err)
	}
	def.Children = children
	return def, nil
}

// DecodeDefinition decodes an inline definition map.
func DecodeDefinition(raw any) (DefinitionMetadata, error) {
	var meta DefinitionMetadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &meta,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return meta, err
	}
	if err := dec.Decode(raw); err != nil {
		return meta, fmt.Errorf("failed to decode definition: %w", err)
	}
	return meta, nil
}

// ParseArg accepts either the "name:type" shorthand or a map with name,
// type, desc and optional keys.
func ParseArg(raw any) (domain.ArgDef, error) {
	switch v := raw.(type) {
	case string:
		name, typ, _ := strings.Cut(v, ":")
		name, typ = strings.TrimSpace(name), strings.TrimSpace(typ)
		if name == "" {
			return domain.ArgDef{}, fmt.Errorf("empty argument name in %q", v)
		}
		if typ == "" {
			typ = "string"
		}
		return domain.ArgDef{Name: name, Type: typ, Optional: strings.HasSuffix(typ, "?")}, nil
	case map[string]any, map[any]any:
		var arg domain.ArgDef
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &arg,
			WeaklyTypedInput: true,
		})
		if err != nil {
			return arg, err
		}
		if err := dec.Decode(v); err != nil {
			return arg, fmt.Errorf("failed to decode argument: %w", err)
		}
		if arg.Name == "" {
			return arg, fmt.Errorf("argument missing name")
		}
		if arg.Type == "" {
			arg.Type = "string"
		}
		return arg, nil
	default:
		return domain.ArgDef{}, fmt.Errorf("invalid argument declaration type: %T", raw)
	}
}

func parseChildren(raw any, category string) (int, error) {
	switch v := raw.(type) {
	case nil:
		return domain.DefaultChildren(category), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		return int(n), err
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "default":
			return domain.DefaultChildren(category), nil
		case "unbounded", "many", "*":
			return domain.ChildrenUnbounded, nil
		}
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("expected number or string, got %T", raw)
	}
}

func normalizeCategory(t string) string {
	for _, c := range []string{domain.CategoryComposite, domain.CategoryDecorator, domain.CategoryCondition, domain.CategoryAction} {
		if strings.EqualFold(t, c) {
			return c
		}
	}
	if t == "" {
		return domain.CategoryAction
	}
	return t
}
