package cli

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/ports"
)

// WatchOptions configure the watch command.
type WatchOptions struct {
	View     ViewOptions
	Interval time.Duration
	// Banner prints the arbor banner before the first render.
	Banner bool
}

// RunWatch renders the document at path and renders it again whenever a
// transcluded document or the catalog changes, until ctx is cancelled.
func RunWatch(ctx context.Context, p *Project, path string, opts WatchOptions, w io.Writer) error {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.Banner {
		tui.PrintBanner(w, arbor.Version)
	}

	catalogChanged := make(chan struct{}, 1)
	if _, ok := p.Workspace.Catalog().(ports.Watchable); ok {
		err := p.Workspace.Watch(ctx, func() {
			select {
			case catalogChanged <- struct{}{}:
			default:
			}
		})
		if err != nil {
			return err
		}
	}

	var last []byte
	render := func(reason string) error {
		var buf bytes.Buffer
		if err := RunTree(ctx, p, path, opts.View, &buf); err != nil {
			return err
		}
		if last != nil && bytes.Equal(buf.Bytes(), last) {
			return nil
		}
		last = buf.Bytes()
		if reason != "" {
			printSystemMessage(w, "Change detected (%s).", reason)
		}
		_, err := w.Write(buf.Bytes())
		return err
	}

	if err := render(""); err != nil {
		return err
	}
	printSystemMessage(w, "Watching '%s'...", path)

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if sc, ok := ctx.(*SignalContext); ok && sc.Signal() != nil {
				printSystemMessage(w, "Interrupted (%v).", sc.Signal())
			}
			return nil
		case <-catalogChanged:
			if err := render("catalog"); err != nil {
				p.Logger.Error("Render failed", "err", err)
			}
		case <-ticker.C:
			reloaded, err := p.Workspace.ReloadStale(ctx)
			if err != nil {
				p.Logger.Warn("Stale reload failed", "err", err)
			}
			if len(reloaded) == 0 {
				continue
			}
			if err := render("subtrees"); err != nil {
				p.Logger.Error("Render failed", "err", err)
			}
		}
	}
}
