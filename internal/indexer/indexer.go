package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/extract"
	"github.com/dshills/docsearch/internal/observability/metrics"
	"github.com/dshills/docsearch/pkg/types"
)

// Defaults applied when Config fields are zero
const (
	DefaultWorkers      = 4
	DefaultMaxTextChars = 50000
	DefaultExcerptChars = 1000

	truncatedSuffix = "... [truncated]"
)

// Store receives embedded documents
type Store interface {
	IndexBatch(vectors [][]float32, records []types.DocumentRecord) error
	Snapshot() error
}

// Indexer coordinates the indexing pipeline: extract -> embed -> insert
type Indexer struct {
	store    Store
	embedder embedder.Embedder
	config   Config
	lock     IndexLock
	progress progressCounters
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// Config contains configuration for the indexer
type Config struct {
	Workers      int  // Concurrent embedding calls (default: 4)
	MaxTextChars int  // Characters sent to the embedder (default: 50000)
	ExcerptChars int  // Characters kept on the record (default: 1000)
	Persist      bool // Save a snapshot after every successful run
}

// DocumentInput is one document whose text has already been extracted.
// Name, Extension and SizeBytes are derived from Path and Text when empty.
type DocumentInput struct {
	Path      string
	Name      string
	Extension string
	SizeBytes int64
	Text      string
}

// Progress tracks the active or most recent run
type Progress struct {
	Running   bool      `json:"running"`
	Total     int32     `json:"total"`
	Processed int32     `json:"processed"`
	Indexed   int32     `json:"indexed"`
	Failed    int32     `json:"failed"`
	StartTime time.Time `json:"start_time"`
}

type progressCounters struct {
	total     atomic.Int32
	processed atomic.Int32
	indexed   atomic.Int32
	failed    atomic.Int32
	startTime atomic.Int64 // unix nanos
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	FilesScanned     int           `json:"files_scanned,omitempty"`
	DocumentsIndexed int           `json:"documents_indexed"`
	DocumentsFailed  int           `json:"documents_failed"`
	DocumentsTrimmed int           `json:"documents_truncated"`
	SnapshotSaved    bool          `json:"snapshot_saved"`
	Duration         time.Duration `json:"duration"`
	ErrorMessages    []string      `json:"errors,omitempty"`
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithMetrics records run durations and failures
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Indexer) { idx.metrics = m }
}

// New creates a new Indexer instance
func New(store Store, emb embedder.Embedder, config *Config, opts ...Option) *Indexer {
	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxTextChars <= 0 {
		cfg.MaxTextChars = DefaultMaxTextChars
	}
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = DefaultExcerptChars
	}

	idx := &Indexer{
		store:    store,
		embedder: emb,
		config:   cfg,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Running reports whether a run is in progress
func (idx *Indexer) Running() bool {
	return idx.lock.Held()
}

// Progress returns counters for the active or most recent run
func (idx *Indexer) Progress() Progress {
	p := Progress{
		Running:   idx.lock.Held(),
		Total:     idx.progress.total.Load(),
		Processed: idx.progress.processed.Load(),
		Indexed:   idx.progress.indexed.Load(),
		Failed:    idx.progress.failed.Load(),
	}
	if ns := idx.progress.startTime.Load(); ns != 0 {
		p.StartTime = time.Unix(0, ns)
	}
	return p
}

// IndexDocuments embeds docs concurrently and inserts every success in
// one batch, in input order. Documents that fail validation or embedding
// are counted in Statistics and do not abort the run.
func (idx *Indexer) IndexDocuments(ctx context.Context, docs []DocumentInput) (*Statistics, error) {
	return idx.run(ctx, docs, false)
}

// IndexDirectory scans root, extracts text from every matching file and
// indexes the results like IndexDocuments
func (idx *Indexer) IndexDirectory(ctx context.Context, root string, opts *ScanOptions) (*Statistics, error) {
	docs, err := ScanDirectory(root, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	stats, err := idx.run(ctx, docs, true)
	if err != nil {
		return nil, err
	}
	stats.FilesScanned = len(docs)
	return stats, nil
}

type prepared struct {
	vector    []float32
	record    types.DocumentRecord
	truncated bool
}

func (idx *Indexer) run(ctx context.Context, docs []DocumentInput, readFiles bool) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	startTime := time.Now()
	idx.resetProgress(len(docs), startTime)

	stats := &Statistics{ErrorMessages: make([]string, 0)}
	results := make([]*prepared, len(docs))
	var mu sync.Mutex // Protect stats.ErrorMessages

	fail := func(path string, err error) {
		idx.progress.failed.Add(1)
		mu.Lock()
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.Workers)

	for i := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer idx.progress.processed.Add(1)

			p, err := idx.prepare(gctx, docs[i], readFiles)
			if err != nil {
				// Cancellation aborts the run; anything else skips the document
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				fail(docs[i].Path, err)
				return nil
			}
			results[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indexing cancelled: %w", err)
	}

	vectors := make([][]float32, 0, len(docs))
	records := make([]types.DocumentRecord, 0, len(docs))
	for _, p := range results {
		if p == nil {
			continue
		}
		vectors = append(vectors, p.vector)
		records = append(records, p.record)
		if p.truncated {
			stats.DocumentsTrimmed++
		}
	}

	if len(records) > 0 {
		if err := idx.store.IndexBatch(vectors, records); err != nil {
			return nil, fmt.Errorf("failed to store documents: %w", err)
		}
		idx.progress.indexed.Store(int32(len(records)))

		if idx.config.Persist {
			if err := idx.store.Snapshot(); err != nil {
				return nil, fmt.Errorf("documents indexed but snapshot failed: %w", err)
			}
			stats.SnapshotSaved = true
		}
	}

	stats.DocumentsIndexed = len(records)
	stats.DocumentsFailed = len(docs) - len(records)
	stats.Duration = time.Since(startTime)
	idx.metrics.RecordIndexingRun(stats.Duration, stats.DocumentsFailed)

	idx.logger.Info("indexing completed",
		slog.Int("indexed", stats.DocumentsIndexed),
		slog.Int("failed", stats.DocumentsFailed),
		slog.Int("truncated", stats.DocumentsTrimmed),
		slog.Duration("duration", stats.Duration),
	)

	return stats, nil
}

// prepare extracts, truncates and embeds one document
func (idx *Indexer) prepare(ctx context.Context, in DocumentInput, readFile bool) (*prepared, error) {
	if strings.TrimSpace(in.Path) == "" {
		return nil, types.ErrEmptyPath
	}

	text := in.Text
	if readFile {
		var err error
		if text, err = extract.File(in.Path); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text content")
	}

	embedText, truncated := truncate(text, idx.config.MaxTextChars)
	if truncated {
		embedText += truncatedSuffix
	}

	emb, err := idx.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: embedText})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	excerpt, _ := truncate(text, idx.config.ExcerptChars)
	record := types.DocumentRecord{
		Path:        in.Path,
		Name:        in.Name,
		Extension:   types.NormalizeExtension(in.Extension),
		SizeBytes:   in.SizeBytes,
		TextExcerpt: excerpt,
	}
	if record.Name == "" {
		record.Name = filepath.Base(in.Path)
	}
	if record.Extension == "" {
		record.Extension = types.NormalizeExtension(filepath.Ext(in.Path))
	}
	if record.SizeBytes <= 0 {
		record.SizeBytes = int64(len(text))
	}

	return &prepared{vector: emb.Vector, record: record, truncated: truncated}, nil
}

func (idx *Indexer) resetProgress(total int, start time.Time) {
	idx.progress.total.Store(int32(total))
	idx.progress.processed.Store(0)
	idx.progress.indexed.Store(0)
	idx.progress.failed.Store(0)
	idx.progress.startTime.Store(start.UnixNano())
}

// truncate returns the first n runes of s and whether anything was cut
func truncate(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
