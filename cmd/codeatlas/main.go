package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/codeatlas-ai/codeatlas/internal/config"
	"github.com/codeatlas-ai/codeatlas/internal/embedder"
	"github.com/codeatlas-ai/codeatlas/internal/generator"
	"github.com/codeatlas-ai/codeatlas/internal/graph"
	"github.com/codeatlas-ai/codeatlas/internal/indexer"
	"github.com/codeatlas-ai/codeatlas/internal/mcp"
	"github.com/codeatlas-ai/codeatlas/internal/parser"
	"github.com/codeatlas-ai/codeatlas/internal/queue"
	"github.com/codeatlas-ai/codeatlas/internal/retriever"
	"github.com/codeatlas-ai/codeatlas/internal/store"
	"github.com/codeatlas-ai/codeatlas/internal/symbols"
	"github.com/codeatlas-ai/codeatlas/internal/watcher"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("codeatlas MCP server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		fmt.Printf("Vector Extension: %v\n", store.VectorExtensionAvailable)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "codeatlas: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting",
		zap.String("version", version),
		zap.String("workspace", cfg.Workspace.Root),
		zap.String("build_mode", store.BuildMode),
		zap.Bool("vector_extension", store.VectorExtensionAvailable))

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.DatabasePath), 0o755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}
	st, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		CacheSize: cfg.Embedding.CacheSize,
	})
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	var describer generator.Describer = generator.Disabled{}
	if cfg.Generator.Enabled {
		describer, err = generator.NewOpenAIDescriber(
			cfg.Generator.APIKey, cfg.Generator.Model, cfg.Generator.BaseURL)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := graph.New()
	idx, err := indexer.New(ctx, indexer.Config{
		Root:      cfg.Workspace.Root,
		Parser:    parser.New(cfg.Workspace.Root, symbols.NewGoSource()),
		Graph:     g,
		Store:     st,
		Embedder:  emb,
		Describer: describer,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if len(cfg.Workspace.Include) > 0 || len(cfg.Workspace.Exclude) > 0 {
		if err := idx.SetFilter(cfg.Workspace.Include, cfg.Workspace.Exclude); err != nil {
			return err
		}
	}

	ret := retriever.New(retriever.Config{
		Embedder:     emb,
		Store:        st,
		Graph:        g,
		Logger:       logger,
		TopK:         cfg.Query.TopK,
		ExpansionCap: cfg.Query.ExpansionCap,
	})

	q := queue.New(func(paths []string) {
		if _, err := idx.ProcessDocuments(ctx, paths, false); err != nil {
			logger.Warn("queued batch failed", zap.Error(err))
			return
		}
		ret.Invalidate()
	}, cfg.Watch.Debounce, logger)
	defer q.Dispose()

	if cfg.Watch.EnabledOrDefault() {
		w := watcher.New(cfg.Workspace.Root, cfg.Watch.Extensions,
			q.Enqueue,
			func(relPath string) {
				if err := idx.DeleteFile(ctx, relPath); err != nil {
					logger.Warn("delete on remove failed",
						zap.String("path", relPath), zap.Error(err))
					return
				}
				ret.Invalidate()
			},
			watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer w.Stop()
	}

	server := mcp.NewServer(idx, ret, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		cancel()
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	logger.Info("stopped")
	return nil
}

// newLogger builds a zap logger writing to stderr; stdout is reserved for
// the MCP protocol.
func newLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
