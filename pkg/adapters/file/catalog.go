package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"gopkg.in/yaml.v3"
)

// LoadCatalog reads a definition list from a JSON or YAML file. The file
// holds either a list of definitions or an object with a "nodes" list;
// arguments accept the same "name:type" shorthand as loam catalogs.
func LoadCatalog(path string) (*memory.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	defs, err := ParseCatalog(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return memory.NewCatalog(defs...), nil
}

// ParseCatalog decodes catalog data; ext selects JSON or YAML.
func ParseCatalog(ext string, data []byte) ([]domain.Definition, error) {
	var raw any
	var err error
	if strings.EqualFold(ext, ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSerialization, err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		nodes, ok := v["nodes"].([]any)
		if !ok {
			return nil, fmt.Errorf("expected a list of definitions or a \"nodes\" list")
		}
		items = nodes
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("expected a list of definitions, got %T", raw)
	}

	defs := make([]domain.Definition, 0, len(items))
	seen := make(map[string]bool, len(items))
	for i, item := range items {
		meta, err := dto.DecodeDefinition(item)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		def, err := meta.ToDefinition("")
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		if seen[def.Name] {
			return nil, fmt.Errorf("duplicate definition %q", def.Name)
		}
		seen[def.Name] = true
		defs = append(defs, def)
	}
	return defs, nil
}
