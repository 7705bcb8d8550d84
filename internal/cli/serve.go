package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	mcpAdapter "github.com/aretw0/arbor/pkg/adapters/mcp"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServeOptions configure the HTTP server.
type ServeOptions struct {
	// Addr overrides the configured listen address.
	Addr string
	// Poll re-expands stale documents at this interval; zero disables it.
	Poll time.Duration
}

// RunServe serves the project over HTTP until ctx is cancelled.
func RunServe(ctx context.Context, opts Options, sOpts ServeOptions, w io.Writer) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	logger := createLogger(opts.Debug, opts.LogJSON)
	streams := httpAdapter.NewStreamManager(logger)
	opts.Hooks = append([]domain.Hooks{streams.Hooks(), metrics.Hooks()}, opts.Hooks...)

	p, err := OpenProject(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.Close(shutdownCtx); err != nil {
			p.Logger.Warn("Workspace shutdown incomplete", "err", err)
		}
	}()

	addr := sOpts.Addr
	if addr == "" {
		addr = p.Config.Server.Addr
	}
	srv := &http.Server{
		Addr: addr,
		Handler: httpAdapter.NewHandler(p.Workspace,
			httpAdapter.WithStreams(streams),
			httpAdapter.WithGatherer(reg),
			httpAdapter.WithLogger(p.Logger),
		),
	}

	startBackground(ctx, p, sOpts.Poll)

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(w, "Serving '%s' on %s", p.Config.DocumentsDir(), addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		printSystemMessage(w, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete: %w", err)
		}
		printSystemMessage(w, "Server stopped gracefully.")
		return nil
	}
}

// startBackground watches the catalog when it supports it and, with a poll
// interval, reloads documents whose subtrees changed.
func startBackground(ctx context.Context, p *Project, poll time.Duration) {
	if _, ok := p.Workspace.Catalog().(ports.Watchable); ok {
		if err := p.Workspace.Watch(ctx); err != nil {
			p.Logger.Warn("Catalog watch failed", "err", err)
		}
	}
	if poll > 0 {
		go pollStale(ctx, p, poll, func(reloaded []string) {
			p.Logger.Info("Reloaded stale documents", "paths", reloaded)
		})
	}
}

func pollStale(ctx context.Context, p *Project, interval time.Duration, onReload func([]string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reloaded, err := p.Workspace.ReloadStale(ctx)
			if err != nil && ctx.Err() == nil {
				p.Logger.Warn("Stale reload failed", "err", err)
			}
			if len(reloaded) > 0 {
				onReload(reloaded)
			}
		}
	}
}

// RunMCP serves the project as an MCP server over stdio or SSE.
func RunMCP(ctx context.Context, opts Options, transport, addr string) error {
	p, err := OpenProject(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close(context.Background()) }()

	startBackground(ctx, p, 0)
	srv := mcpAdapter.NewServer(p.Workspace, mcpAdapter.WithLogger(p.Logger))
	switch transport {
	case "", "stdio":
		return srv.ServeStdio()
	case "sse":
		return srv.ServeSSE(ctx, addr)
	}
	return fmt.Errorf("unknown transport %q (expected stdio or sse)", transport)
}
