package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/pkg/adapters/file"
	"github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
)

// Options are the flags shared by every command.
type Options struct {
	Dir   string
	Debug bool
	// LogJSON writes info-level JSON records to stderr, for servers whose
	// logs are collected.
	LogJSON bool
	// Hooks are installed on the workspace in addition to the debug hooks.
	Hooks []domain.Hooks
}

// Project is an opened arbor project: its configuration and the workspace
// built from it.
type Project struct {
	Config    *config.Config
	Workspace *arbor.Workspace
	Logger    *slog.Logger

	closers []func() error
}

// Close shuts the workspace down and releases the backends.
func (p *Project) Close(ctx context.Context) error {
	errs := []error{p.Workspace.Shutdown(ctx)}
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenProject loads the configuration of opts.Dir and creates the workspace
// with the configured store, catalog, clipboard and locker.
func OpenProject(ctx context.Context, opts Options) (*Project, error) {
	logger := createLogger(opts.Debug, opts.LogJSON)

	cfg, err := config.Load(opts.Dir)
	if err != nil {
		return nil, err
	}
	p := &Project{Config: cfg, Logger: logger}

	wsOpts := []arbor.Option{
		arbor.WithLogger(logger),
		arbor.WithHistoryLimit(cfg.HistoryLimit),
	}
	if cfg.DefaultNode != "" {
		wsOpts = append(wsOpts, arbor.WithDefaultNode(cfg.DefaultNode))
	}
	if cfg.RootNode != "" {
		wsOpts = append(wsOpts, arbor.WithRootNode(cfg.RootNode))
	}
	if opts.Debug {
		wsOpts = append(wsOpts, arbor.WithHooks(observability.LogHooks(logger)))
	}
	for _, h := range opts.Hooks {
		wsOpts = append(wsOpts, arbor.WithHooks(h))
	}

	// 1. Storage
	var store ports.DocumentStore
	if cfg.UseRedis() {
		rs := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redisOptions(cfg)...)
		if err := rs.Client().Ping(ctx).Err(); err != nil {
			_ = rs.Close()
			return nil, fmt.Errorf("redis %s unreachable: %w", cfg.Redis.Addr, err)
		}
		p.closers = append(p.closers, rs.Close)
		store = rs
		wsOpts = append(wsOpts, arbor.WithLocker(redis.NewLocker(rs.Client(), lockPrefix(cfg))))
		logger.Debug("Using redis storage", "addr", cfg.Redis.Addr)
	}
	if cfg.Storage.EncryptionKey != "" {
		keys, err := middleware.ParseKeys(cfg.Storage.EncryptionKey, cfg.Storage.FallbackKeys...)
		if err != nil {
			p.close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		if store == nil {
			store = fileStore(cfg)
		}
		store = middleware.NewEncryptionMiddleware(keys)(store)
		logger.Debug("Documents are encrypted at rest", "fallback_keys", len(keys.FallbackKeys))
	}
	if store == nil {
		store = fileStore(cfg)
	}
	wsOpts = append(wsOpts, arbor.WithStore(store))

	// 2. Catalog
	catalog, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		p.close()
		return nil, err
	}
	wsOpts = append(wsOpts, arbor.WithCatalog(catalog))

	// 3. Clipboard
	cc, ok, err := cfg.ClipboardCommands()
	if err != nil {
		logger.Warn("System clipboard unavailable, using an in-process one", "err", err)
	} else if ok {
		clip, err := process.NewClipboard(cc, process.WithBaseDir(cfg.Dir()))
		if err != nil {
			p.close()
			return nil, err
		}
		wsOpts = append(wsOpts, arbor.WithClipboard(clip))
	}

	ws, err := arbor.New(cfg.DocumentsDir(), wsOpts...)
	if err != nil {
		p.close()
		return nil, fmt.Errorf("error initializing workspace: %w", err)
	}
	p.Workspace = ws
	return p, nil
}

func (p *Project) close() {
	for _, c := range p.closers {
		_ = c()
	}
}

// fileStore opens the documents directory, hiding the project files that
// live inside it.
func fileStore(cfg *config.Config) *file.Store {
	docs := cfg.DocumentsDir()
	var ignore []string
	for _, p := range append(slices.Clone(config.FileNames), cfg.Catalog, cfg.Build.Output) {
		if p == "" {
			continue
		}
		rel, err := filepath.Rel(docs, cfg.Path(p))
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		ignore = append(ignore, rel)
	}
	return file.New(docs, file.WithIgnore(ignore...))
}

func redisOptions(cfg *config.Config) []redis.Option {
	if cfg.Redis.Prefix == "" {
		return nil
	}
	return []redis.Option{redis.WithPrefix(cfg.Redis.Prefix)}
}

func lockPrefix(cfg *config.Config) string {
	if cfg.Redis.Prefix == "" {
		return "arbor:lock:"
	}
	return cfg.Redis.Prefix + "lock:"
}

// loadCatalog layers the project catalog over the builtins. A directory is
// read as a loam repository, anything else as a single definition file.
func loadCatalog(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.Catalog, error) {
	if cfg.Catalog == "" {
		return memory.NewCatalog(memory.Builtins()...), nil
	}
	path := cfg.Path(cfg.Catalog)
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if info.IsDir() {
		logger.Debug("Loading loam catalog", "dir", path)
		return loam.Open(ctx, path, loam.WithBase(memory.Builtins()), loam.WithLogger(logger))
	}

	fc, err := file.LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	defs := memory.Builtins()
	for _, name := range fc.Names() {
		defs = append(defs, fc.Lookup(name))
	}
	return memory.NewCatalog(defs...), nil
}
