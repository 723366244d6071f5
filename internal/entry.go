// Package internal provides the application initialization and the runners
// behind each command.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-git/go-billy/v5/osfs"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wmo-im/codelists/internal/api"
	"github.com/wmo-im/codelists/internal/apperr"
	"github.com/wmo-im/codelists/internal/bundle"
	"github.com/wmo-im/codelists/internal/index"
	"github.com/wmo-im/codelists/internal/mcpserver"
	"github.com/wmo-im/codelists/internal/registry"
	"github.com/wmo-im/codelists/internal/source"
	"github.com/wmo-im/codelists/internal/sse"
	"github.com/wmo-im/codelists/internal/storage"
	"github.com/wmo-im/codelists/internal/syncer"
	"github.com/wmo-im/codelists/internal/topicservice"
	"github.com/wmo-im/codelists/internal/walker"
)

func newApplication(opts []Option) (*application, func(), error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config
	level := cfg.App.LogLevel
	if app.verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if app.logOutput != nil {
		out = app.logOutput
	}
	cleanup := func() {}
	if cfg.App.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.App.LogFile,
			MaxSize:    cfg.App.LogMaxSizeMB,
			MaxBackups: cfg.App.LogMaxBackups,
		}
		out = lj
		cleanup = func() { _ = lj.Close() }
	}

	app.logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(app.logger)
	return app, cleanup, nil
}

// openOutput prepares the output directory and the catalog index.
func (a *application) openOutput() (*storage.FS, *index.DB, error) {
	cfg := a.config
	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("init index: %w", err)
	}
	return store, db, nil
}

func (a *application) walkerOptions() walker.Options {
	return walker.Options{
		RootName:        a.config.Source.RootName,
		RootDescription: a.config.Source.RootDescription,
		Workers:         a.config.Sync.Workers,
		Logger:          a.logger,
	}
}

func (a *application) pipeline(store storage.Provider, db *index.DB, broker *sse.Broker) *pipeline {
	return &pipeline{
		sourceDir: a.config.Source.Dir,
		opts:      a.walkerOptions(),
		store:     store,
		db:        db,
		broker:    broker,
		logger:    a.logger,
	}
}

// RunCompile regenerates the output tree once, then keeps recompiling on
// source changes when watch is set.
func RunCompile(ctx context.Context, watch bool, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("source_dir", cfg.Source.Dir),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("root", cfg.Source.RootName),
		slog.Bool("watch", watch))

	store, db, err := app.openOutput()
	if err != nil {
		return err
	}
	defer db.Close()

	p := app.pipeline(store, db, nil)
	if err := p.Rebuild(ctx, "startup"); err != nil && !watch {
		return err
	}
	if !watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return index.Watch(ctx, cfg.Source.Dir, index.DefaultDebounce, logger, p.Rebuild)
}

// RunSync pushes the documents under dir to the registry. An empty dir
// means the configured output directory.
func RunSync(ctx context.Context, dir string, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg := app.config
	logger := app.logger

	if dir == "" {
		dir = cfg.Output.Dir
	}
	if err := cfg.Registry.ValidateCredentials(); err != nil {
		return fmt.Errorf("%w: registry: %v", apperr.ErrInvalidConfig, err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperr.ErrInvalidConfig, dir)
	}

	client, err := registry.New(registry.Config{
		BaseURL:  cfg.Registry.BaseURL(),
		Status:   cfg.Registry.Status,
		User:     cfg.Registry.User,
		Password: cfg.Registry.Password,
		DryRun:   cfg.Registry.DryRun,
		Timeout:  cfg.Registry.Timeout,
		Retries:  cfg.Registry.Retries,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	store, err := storage.NewFS(dir)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	logger.Info("Configuration loaded",
		slog.String("directory", store.Root()),
		slog.String("mode", cfg.Registry.Mode),
		slog.String("registry", client.BaseURL()),
		slog.String("status", cfg.Registry.Status),
		slog.Bool("dry_run", cfg.Registry.DryRun))

	if !cfg.Registry.DryRun {
		if err := client.Login(ctx); err != nil {
			logger.Error("registry login failed", slog.String("error", err.Error()))
			return err
		}
	}

	s := syncer.NewSyncer(client, syncer.Config{
		BaseURL: client.BaseURL(),
		Prefix:  cfg.Registry.Prefix,
		Workers: cfg.Sync.Workers,
		DryRun:  cfg.Registry.DryRun,
		Ledger:  db,
		Logger:  logger,
	})
	report, err := s.Run(ctx, store)
	if err != nil {
		logger.Error("sync aborted", slog.String("error", err.Error()))
		return err
	}

	logger.Info("sync finished",
		slog.Int("documents", report.Total()),
		slog.Int("new", report.New),
		slog.Int("changed", report.Changed),
		slog.Int("equal", report.Equal),
		slog.Int("failed", report.Failed))
	return nil
}

// RunBundle writes the sorted list of topic paths below the root to output.
// An empty output means the configured bundle file.
func RunBundle(ctx context.Context, output string, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg := app.config

	if output == "" {
		output = cfg.Output.Bundle
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("resolve bundle path: %w", err)
	}

	cat, err := source.Open(cfg.Source.Dir)
	if err != nil {
		return err
	}
	root, err := walker.Build(ctx, cat, app.walkerOptions())
	if err != nil {
		return err
	}

	n, err := bundle.WriteFile(osfs.New(filepath.Dir(abs)), filepath.Base(abs), root)
	if err != nil {
		return err
	}
	app.logger.Info("bundle written", slog.String("path", abs), slog.Int("topics", n))
	return nil
}

// RunServe compiles the sources, then serves the browse API while watching
// the sources for changes.
func RunServe(ctx context.Context, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg := app.config
	logger := app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("source_dir", cfg.Source.Dir),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, db, err := app.openOutput()
	if err != nil {
		return err
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	p := app.pipeline(store, db, broker)
	if err := p.Rebuild(ctx, "startup"); err != nil {
		logger.Warn("initial compile failed, serving previous output", slog.String("error", err.Error()))
	}

	svc := topicservice.NewService(store, db)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, p.Rebuild)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return index.Watch(gCtx, cfg.Source.Dir, index.DefaultDebounce, logger, p.Rebuild)
	})

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP compiles the sources and serves the taxonomy over MCP on stdio.
// Logs must not go to stdout, which carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, cleanup, err := newApplication(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	store, db, err := app.openOutput()
	if err != nil {
		return err
	}
	defer db.Close()

	p := app.pipeline(store, db, nil)
	if err := p.Rebuild(ctx, "startup"); err != nil {
		app.logger.Warn("initial compile failed, serving previous output", slog.String("error", err.Error()))
	}

	srv := mcpserver.New(topicservice.NewService(store, db), p.Rebuild)
	app.logger.Info("MCP server starting on stdio")
	return srv.ServeStdio()
}
