package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/docsearch/internal/cache"
	"github.com/dshills/docsearch/internal/config"
	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/keyword"
	"github.com/dshills/docsearch/internal/observability/metrics"
	"github.com/dshills/docsearch/internal/rerank"
	"github.com/dshills/docsearch/internal/searcher"
	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/internal/vectorindex"
	"github.com/dshills/docsearch/pkg/types"
)

// Engine owns the vector index, keyword index, query caches and ranker.
// Mutations hold the write lock across every index they touch, so a
// search sees either all of a mutation or none of it.
type Engine struct {
	mu  sync.RWMutex
	gen atomic.Uint64 // Advances under mu on every mutation

	vectors  *vectorindex.Index
	keywords *keyword.Index
	cache    *cache.QueryCache // nil when caching is disabled
	searcher *searcher.Searcher
	embedder embedder.Embedder

	snapshotDir string
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// Option configures an Engine
type Option func(*options)

type options struct {
	logger    *slog.Logger
	metrics   *metrics.Metrics
	reranker  searcher.Reranker
	cacheOpts []cache.Option
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records search and mutation metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithReranker replaces the default context reranker
func WithReranker(r searcher.Reranker) Option {
	return func(o *options) { o.reranker = r }
}

// WithCacheOptions passes options to both query caches
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) { o.cacheOpts = append(o.cacheOpts, opts...) }
}

// Status reports the engine's current state
type Status struct {
	Documents         int                   `json:"documents"`
	Dimension         int                   `json:"dimension"`
	KeywordReady      bool                  `json:"keyword_index_ready"`
	CacheEnabled      bool                  `json:"cache_enabled"`
	SnapshotDir       string                `json:"snapshot_dir"`
	StorageBackend    string                `json:"storage_backend"`
	EmbeddingProvider string                `json:"embedding_provider"`
	EmbeddingModel    string                `json:"embedding_model"`
	LastSnapshot      *storage.SnapshotInfo `json:"last_snapshot,omitempty"`
}

// New builds an Engine from cfg. The embedder's dimension must match
// cfg.Dimension.
func New(cfg *config.Config, emb embedder.Embedder, opts ...Option) (*Engine, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if emb == nil {
		return nil, errors.New("embedder is required")
	}
	if emb.Dimension() != cfg.Dimension {
		return nil, fmt.Errorf("%w: embedder produces %d, index expects %d",
			types.ErrDimensionMismatch, emb.Dimension(), cfg.Dimension)
	}

	o := &options{reranker: rerank.New()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}

	vectors, err := vectorindex.New(cfg.Dimension)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		vectors:     vectors,
		keywords:    keyword.New(),
		embedder:    emb,
		snapshotDir: cfg.SnapshotDir,
		metrics:     o.metrics,
		logger:      o.logger,
	}

	if cfg.Cache.Enabled {
		e.cache = cache.NewQueryCache(cache.QueryConfig{
			EmbeddingMaxSize: cfg.Cache.EmbeddingSize,
			EmbeddingTTL:     cfg.Cache.EmbeddingTTL,
			ResultMaxSize:    cfg.Cache.ResultSize,
			ResultTTL:        cfg.Cache.ResultTTL,
		}, o.cacheOpts...)
	}

	searchOpts := []searcher.Option{
		searcher.WithCache(e.cache),
		searcher.WithReranker(o.reranker),
		searcher.WithReadLock(e.mu.RLocker()),
		searcher.WithGeneration(e.gen.Load),
		searcher.WithLogger(o.logger),
		searcher.WithDefaultAlpha(cfg.Search.Alpha),
	}
	if o.metrics != nil {
		searchOpts = append(searchOpts, searcher.WithObserver(o.metrics))
	}
	e.searcher = searcher.New(e.vectors, e.keywords, emb, searchOpts...)

	return e, nil
}

// Embedder returns the embedder used for queries and indexing
func (e *Engine) Embedder() embedder.Embedder {
	return e.embedder
}

// Index adds one document
func (e *Engine) Index(vector []float32, record types.DocumentRecord) error {
	return e.IndexBatch([][]float32{vector}, []types.DocumentRecord{record})
}

// IndexBatch adds all documents or none. On success the keyword index is
// rebuilt from every record excerpt and cached results are dropped.
func (e *Engine) IndexBatch(vectors [][]float32, records []types.DocumentRecord) error {
	for i := range records {
		if err := records[i].Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.vectors.InsertBatch(vectors, records)
	if err == nil {
		e.rebuildKeywordsLocked()
		e.invalidateLocked()
	}
	e.metrics.RecordMutation("index_batch", len(records), e.vectors.Len(), err)
	if err != nil {
		return fmt.Errorf("failed to index documents: %w", err)
	}

	e.logger.Debug("documents indexed",
		slog.Int("added", len(records)),
		slog.Int("total", e.vectors.Len()),
	)
	return nil
}

// Search runs a hybrid search
func (e *Engine) Search(ctx context.Context, req searcher.Request) (*searcher.Response, error) {
	return e.searcher.Search(ctx, req)
}

// DefaultAlpha returns the semantic weight used when a request sets none
func (e *Engine) DefaultAlpha() float64 {
	return e.searcher.DefaultAlpha()
}

// Clear removes every document
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearLocked()
	e.metrics.RecordMutation("clear", 0, 0, nil)
	e.logger.Info("index cleared")
}

// Snapshot saves the vector index to the configured directory
func (e *Engine) Snapshot() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	start := time.Now()
	err := e.vectors.Snapshot(e.snapshotDir)
	e.metrics.RecordSnapshot("save", err)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	e.logger.Info("snapshot saved",
		slog.String("dir", e.snapshotDir),
		slog.Int("documents", e.vectors.Len()),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// Restore loads the snapshot in the configured directory. A missing
// snapshot leaves the engine unchanged. A corrupt snapshot resets the
// engine to empty and returns an error wrapping types.ErrCorruptSnapshot.
func (e *Engine) Restore() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.vectors.Restore(e.snapshotDir)
	e.metrics.RecordSnapshot("restore", err)

	switch {
	case err == nil:
		e.rebuildKeywordsLocked()
		e.invalidateLocked()
		e.metrics.RecordMutation("restore", 0, e.vectors.Len(), nil)
		e.logger.Info("snapshot restored",
			slog.String("dir", e.snapshotDir),
			slog.Int("documents", e.vectors.Len()),
		)
		return nil
	case errors.Is(err, types.ErrCorruptSnapshot):
		e.clearLocked()
		e.metrics.RecordMutation("restore", 0, 0, nil)
		e.logger.Warn("corrupt snapshot, starting with an empty index",
			slog.String("dir", e.snapshotDir),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to restore snapshot: %w", err)
	default:
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}
}

// CacheStats reports hit and miss counters for the embedding and result
// caches. The map is empty when caching is disabled.
func (e *Engine) CacheStats() map[string]cache.Stats {
	return e.cache.Stats()
}

// CacheClear empties both caches and resets their counters
func (e *Engine) CacheClear() {
	e.cache.Clear()
}

// Status reports corpus size and configuration. LastSnapshot is set when a
// readable snapshot exists in the snapshot directory.
func (e *Engine) Status(ctx context.Context) Status {
	e.mu.RLock()
	status := Status{
		Documents:         e.vectors.Len(),
		Dimension:         e.vectors.Dimension(),
		KeywordReady:      e.keywords.Ready(),
		CacheEnabled:      e.cache != nil,
		SnapshotDir:       e.snapshotDir,
		StorageBackend:    storage.BuildMode,
		EmbeddingProvider: e.embedder.Provider(),
		EmbeddingModel:    e.embedder.Model(),
	}
	e.mu.RUnlock()

	info, err := e.snapshotInfo(ctx)
	if err != nil {
		e.logger.Debug("snapshot info unavailable", slog.String("error", err.Error()))
	}
	status.LastSnapshot = info
	return status
}

func (e *Engine) snapshotInfo(ctx context.Context) (*storage.SnapshotInfo, error) {
	path := filepath.Join(e.snapshotDir, vectorindex.MetadataFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	db, err := storage.OpenSQLiteStorage(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	return db.SnapshotInfo(ctx)
}

// Close releases the embedder
func (e *Engine) Close() error {
	return e.embedder.Close()
}

// rebuildKeywordsLocked rebuilds BM25 statistics over every record excerpt
// in ID order, so keyword scores stay aligned with record IDs
func (e *Engine) rebuildKeywordsLocked() {
	records := e.vectors.Records()
	corpus := make([]string, len(records))
	for i, r := range records {
		corpus[i] = r.TextExcerpt
	}
	e.keywords.Rebuild(corpus)
}

func (e *Engine) clearLocked() {
	e.vectors.Clear()
	e.keywords.Clear()
	e.invalidateLocked()
}

// invalidateLocked drops cached results and retires the current generation,
// so searches still in flight against the old corpus do not cache theirs
func (e *Engine) invalidateLocked() {
	e.gen.Add(1)
	e.cache.PurgeResults()
}
