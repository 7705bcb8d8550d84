package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/dsl"
)

// InitOptions configure the init command.
type InitOptions struct {
	// Format is the config file extension: yaml, json or toml.
	Format string
	// Example seeds a pair of documents that transclude each other's content.
	Example bool
}

// RunInit writes a new project configuration into dir.
func RunInit(ctx context.Context, dir string, opts InitOptions, w io.Writer) error {
	if existing := config.Find(dir); existing != "" {
		return fmt.Errorf("%s already exists", existing)
	}
	format := opts.Format
	if format == "" {
		format = "yaml"
	}
	name := "arbor." + format

	cfg := config.Default()
	cfg.Documents = "trees"
	if err := config.Write(dir, name, cfg); err != nil {
		return err
	}
	printSystemMessage(w, "Created %s.", filepath.Join(dir, name))

	if !opts.Example {
		return nil
	}
	store := file.New(filepath.Join(dir, cfg.Documents))
	examples := map[string]*dsl.Builder{
		"patrol.json": dsl.New("patrol").
			Desc("Walks between waypoints and attacks what it sees.").
			Var("target", "Entity in sight").
			Root(dsl.Node("Selector").Children(
				dsl.Ref("attack.yaml"),
				dsl.Node("Sequence").Children(
					dsl.Node("Log").Arg("message", "patrolling"),
					dsl.Node("Wait").Arg("time", 1.5),
				),
			)),
		"attack.yaml": dsl.New("attack").
			Root(dsl.Node("Sequence").Children(
				dsl.Node("Check").Arg("value", "target != null"),
				dsl.Node("Calculate").Arg("value", "hp - 10").Output("hp"),
			)),
	}
	for path, b := range examples {
		if err := store.Write(ctx, path, b.Build()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		printSystemMessage(w, "Created %s.", filepath.Join(dir, cfg.Documents, path))
	}
	return nil
}
