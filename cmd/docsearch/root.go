package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/engine"
	"github.com/dshills/docsearch/internal/indexer"
	"github.com/dshills/docsearch/internal/observability/logging"
	"github.com/dshills/docsearch/internal/observability/metrics"
	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/pkg/types"
)

const serviceName = "docsearch"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "docsearch",
	Short: "Hybrid semantic and keyword document search",
	Long: `docsearch indexes pdf, docx, txt and md documents into an in-memory
vector index, ranks queries with semantic similarity fused with BM25 keyword
scores and serves the engine to MCP clients over stdio.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
}

// app bundles the components every command builds from config
type app struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	engine  *engine.Engine
	indexer *indexer.Indexer
}

// newApp loads config and wires the engine, restoring the saved
// snapshot when one exists
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting",
		slog.String("version", version),
		slog.String("build_mode", storage.BuildMode),
		slog.String("sqlite_driver", storage.DriverName),
	)

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.Embedder.Provider,
		APIKey:    cfg.Embedder.APIKey,
		Model:     cfg.Embedder.Model,
		Endpoint:  cfg.Embedder.Endpoint,
		Dimension: cfg.Dimension,
		Timeout:   cfg.Embedder.Timeout,

		RequestsPerSecond: cfg.Embedder.RequestsPerSecond,
		Burst:             cfg.Embedder.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	m := metrics.New(serviceName)
	eng, err := engine.New(cfg, emb,
		engine.WithLogger(logger.With("component", "engine")),
		engine.WithMetrics(m),
	)
	if err != nil {
		_ = emb.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	if err := eng.Restore(); err != nil {
		if !errors.Is(err, types.ErrSnapshotNotFound) {
			logger.Warn("snapshot not restored", slog.String("error", err.Error()))
		}
	}

	idx := indexer.New(eng, emb, &indexer.Config{
		Workers:      cfg.Indexer.Workers,
		MaxTextChars: cfg.Indexer.MaxTextChars,
		ExcerptChars: cfg.Indexer.ExcerptChars,
		Persist:      cfg.Indexer.Persist,
	},
		indexer.WithLogger(logger.With("component", "indexer")),
		indexer.WithMetrics(m),
	)

	status := eng.Status(ctx)
	logger.Info("engine ready",
		slog.Int("documents", status.Documents),
		slog.Int("dimension", status.Dimension),
		slog.String("embedding_provider", status.EmbeddingProvider),
	)

	return &app{
		config:  cfg,
		logger:  logger,
		metrics: m,
		engine:  eng,
		indexer: idx,
	}, nil
}

func (a *app) Close() error {
	return a.engine.Close()
}
