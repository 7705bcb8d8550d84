package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/build"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/schema"
	"github.com/bmatcuk/doublestar/v4"
)

// BuildOptions configure the build command.
type BuildOptions struct {
	// Output overrides the configured output directory.
	Output string
	// Inline forces subtree inlining on top of the configured setting.
	Inline bool
	// StripDebug clears the debug flag of every node.
	StripDebug bool
	// CheckArgs fails a document whose arguments do not match the catalog.
	CheckArgs bool
	// Match keeps only the documents whose path matches the glob. "**"
	// crosses directories.
	Match string
	// Redact adds argument name patterns to mask on top of build.redact.
	Redact []string
}

// RunBuild writes the storage form of every project document to the output
// directory and prints a summary.
func RunBuild(ctx context.Context, p *Project, opts BuildOptions, w io.Writer) (*build.Report, error) {
	out := opts.Output
	if out == "" {
		out = p.Config.Build.Output
	}
	var dst ports.DocumentStore = file.New(p.Config.Path(out))
	if patterns := append(slices.Clone(p.Config.Build.Redact), opts.Redact...); len(patterns) > 0 {
		redact, err := middleware.NewRedactMiddleware(patterns)
		if err != nil {
			return nil, err
		}
		dst = redact(dst)
	}

	nodes := registry.NewRegistry()
	if opts.StripDebug {
		nodes.Register(registry.Any, func(_ context.Context, _ *domain.Document, n *domain.Node) error {
			n.Debug = false
			return nil
		})
	}
	if opts.CheckArgs {
		catalog := p.Workspace.Catalog()
		nodes.Register(registry.Any, func(_ context.Context, _ *domain.Document, n *domain.Node) error {
			if len(n.Args) == 0 || !catalog.Exists(n.Name) {
				return nil
			}
			if err := schema.Validate(schema.ForDefinition(catalog.Lookup(n.Name)), n.Args); err != nil {
				return fmt.Errorf("node %s (%s): %w", n.ID, n.Name, err)
			}
			return nil
		})
	}

	bOpts := []build.Option{
		build.WithRegistry(nodes),
		build.WithInlineSubtrees(opts.Inline || p.Config.Build.InlineSubtrees),
		build.WithLogger(p.Logger),
	}
	if opts.Match != "" {
		if !doublestar.ValidatePattern(opts.Match) {
			return nil, fmt.Errorf("invalid pattern %q: %w", opts.Match, doublestar.ErrBadPattern)
		}
		logger := p.Logger
		bOpts = append(bOpts, build.WithFilter(func(path string) bool {
			ok, err := doublestar.Match(opts.Match, path)
			if err != nil {
				logger.Warn("Pattern match failed", "pattern", opts.Match, "path", path, "err", err)
			}
			return ok
		}))
	}

	report, err := build.New(p.Workspace.Store(), dst, bOpts...).Run(ctx)
	if report == nil {
		return nil, err
	}
	for _, b := range report.Built {
		fmt.Fprintf(w, "built   %s\n", b)
	}
	warned := make([]string, 0, len(report.Warnings))
	for path := range report.Warnings {
		warned = append(warned, path)
	}
	sort.Strings(warned)
	for _, path := range warned {
		fmt.Fprintf(w, "warning %s: %v\n", path, report.Warnings[path])
	}
	printSystemMessage(w, "%d built, %d skipped, %d failed into '%s'.",
		len(report.Built), len(report.Skipped), len(report.Failed), out)
	return report, err
}
