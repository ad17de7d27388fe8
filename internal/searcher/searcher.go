package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/docsearch/internal/cache"
	"github.com/dshills/docsearch/internal/embedder"
	"github.com/dshills/docsearch/internal/vectorindex"
	"github.com/dshills/docsearch/pkg/types"
)

const (
	DefaultK         = 5
	MaxK             = 50
	DefaultAlpha     = 0.7
	OversampleFactor = 3   // Semantic candidates per requested result
	MaxCandidates    = 100 // Upper bound on semantic candidates
	MaxQueryLength   = 500
)

// ErrQueryTooLong is returned for queries longer than MaxQueryLength runes
var ErrQueryTooLong = errors.New("query too long")

// errCorpusChanged reports a ranking computed against an older corpus
var errCorpusChanged = errors.New("corpus changed during search")

// VectorSearcher finds nearest semantic candidates
type VectorSearcher interface {
	Search(query []float32, k int) ([]vectorindex.Hit, error)
}

// KeywordScorer scores every corpus document for a query, indexed by
// corpus position
type KeywordScorer interface {
	Score(query string) []float64
	Ready() bool
}

// Reranker reorders a final result list
type Reranker interface {
	Rerank(results []types.ScoredResult, query string) []types.ScoredResult
}

// Observer receives one call per completed search
type Observer interface {
	ObserveSearch(method types.SearchMethod, cacheHit bool, results int, d time.Duration)
}

// Request contains parameters for a search operation
type Request struct {
	Query        string
	K            int      // Results to return, default DefaultK
	Alpha        *float64 // Semantic weight in [0, 1], nil for the default
	MinScore     float64  // Drop candidates whose hybrid score is lower
	UseContext   bool     // Apply context reranking to the final list
	SemanticOnly bool     // Skip keyword fusion
	FileTypes    []string // Keep only these extensions, empty keeps all
}

// Response contains search results and metadata
type Response struct {
	Results            []types.ScoredResult
	Method             types.SearchMethod
	CacheHit           bool
	ContextRanked      bool
	Alpha              float64
	Duration           time.Duration
	SemanticCandidates int
}

// Searcher fuses semantic and keyword signals into one ranking
type Searcher struct {
	vectors  VectorSearcher
	keywords KeywordScorer
	embedder embedder.Embedder
	cache    *cache.QueryCache
	reranker Reranker
	readLock sync.Locker
	gen      func() uint64
	observer Observer
	logger   *slog.Logger
	alpha    float64

	// Collapses concurrent embedding requests for the same query
	group singleflight.Group
}

// Option configures a Searcher
type Option func(*Searcher)

// WithCache enables embedding and result caching
func WithCache(qc *cache.QueryCache) Option {
	return func(s *Searcher) { s.cache = qc }
}

// WithReranker sets the reranker used when a request asks for context ranking
func WithReranker(r Reranker) Option {
	return func(s *Searcher) { s.reranker = r }
}

// WithReadLock sets a lock held while both indexes are read, so a search
// never observes a half-applied mutation
func WithReadLock(l sync.Locker) Option {
	return func(s *Searcher) { s.readLock = l }
}

// WithGeneration sets a counter that advances on every corpus mutation.
// Results ranked under one generation are not cached once it has moved on.
func WithGeneration(gen func() uint64) Option {
	return func(s *Searcher) { s.gen = gen }
}

// WithObserver reports completed searches
func WithObserver(o Observer) Option {
	return func(s *Searcher) { s.observer = o }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultAlpha overrides DefaultAlpha. Values outside [0, 1] are ignored.
func WithDefaultAlpha(alpha float64) Option {
	return func(s *Searcher) {
		if alpha >= 0 && alpha <= 1 {
			s.alpha = alpha
		}
	}
}

// New creates a Searcher. keywords may be nil, in which case every search
// is semantic only.
func New(vectors VectorSearcher, keywords KeywordScorer, emb embedder.Embedder, opts ...Option) *Searcher {
	s := &Searcher{
		vectors:  vectors,
		keywords: keywords,
		embedder: emb,
		logger:   slog.New(slog.DiscardHandler),
		alpha:    DefaultAlpha,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultAlpha returns the alpha used when a request sets none
func (s *Searcher) DefaultAlpha() float64 {
	return s.alpha
}

// Search runs cache lookup, semantic retrieval, keyword fusion, optional
// context reranking and cache store
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	startTime := time.Now()

	if s.embedder == nil || s.vectors == nil {
		return nil, fmt.Errorf("searcher not initialized")
	}

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	alpha := s.alpha
	if req.Alpha != nil {
		alpha = *req.Alpha
	}
	variant := req.variant(alpha)

	if cached, ok := s.cache.GetResults(req.Query, req.K, variant); ok {
		resp := &Response{
			Results:       cached,
			Method:        types.MethodCached,
			CacheHit:      true,
			ContextRanked: req.UseContext,
			Alpha:         alpha,
			Duration:      time.Since(startTime),
		}
		s.observe(resp)
		return resp, nil
	}

	vector, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	resp, gen, err := s.rank(vector, req, alpha)
	if err != nil {
		return nil, err
	}

	if req.UseContext && s.reranker != nil && len(resp.Results) > 0 {
		resp.Results = s.reranker.Rerank(resp.Results, req.Query)
		resp.ContextRanked = true
	}

	// Empty result sets are not cached so newly indexed documents show up
	if len(resp.Results) > 0 {
		if err := s.storeResults(req, variant, gen, resp.Results); err != nil {
			s.logger.Debug("results not cached", slog.String("reason", err.Error()))
		}
	}

	resp.Duration = time.Since(startTime)
	s.observe(resp)

	s.logger.Debug("search completed",
		slog.String("method", string(resp.Method)),
		slog.Int("results", len(resp.Results)),
		slog.Int("candidates", resp.SemanticCandidates),
		slog.Duration("duration", resp.Duration),
	)

	return resp, nil
}

// embedQuery returns the query embedding through the embedding cache
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if vec, ok := s.cache.GetEmbedding(query); ok {
		return vec, nil
	}

	v, err, _ := s.group.Do(cache.EmbeddingKey(query), func() (interface{}, error) {
		emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
		if err != nil {
			return nil, err
		}
		s.cache.SetEmbedding(query, emb.Vector)
		return emb.Vector, nil
	})
	if err != nil {
		return nil, err
	}

	// Shared result, callers must not alias each other
	shared := v.([]float32)
	vec := make([]float32, len(shared))
	copy(vec, shared)
	return vec, nil
}

// rank reads both indexes under the read lock and fuses their scores. It
// also returns the corpus generation the ranking was computed against.
func (s *Searcher) rank(vector []float32, req Request, alpha float64) (*Response, uint64, error) {
	s.lockRead()
	defer s.unlockRead()

	gen := s.generation()

	hits, err := s.vectors.Search(vector, candidateCount(req.K))
	if err != nil {
		return nil, 0, fmt.Errorf("semantic search failed: %w", err)
	}

	method := types.MethodHybrid
	var keywordScores []float64
	switch {
	case req.SemanticOnly:
		method = types.MethodSemanticOnly
	case s.keywords == nil || !s.keywords.Ready():
		method = types.MethodSemanticOnly
		s.logger.Debug("falling back to semantic search", slog.String("reason", types.ErrKeywordIndexUnready.Error()))
	default:
		keywordScores = normalizeScores(s.keywords.Score(req.Query))
	}

	results := fuse(hits, keywordScores, method, alpha, req)

	return &Response{
		Results:            results,
		Method:             method,
		Alpha:              alpha,
		SemanticCandidates: len(hits),
	}, gen, nil
}

// storeResults caches results ranked at generation gen. The read lock is
// held across the check and the store, so a mutation cannot purge the cache
// in between and leave results from the old corpus behind.
func (s *Searcher) storeResults(req Request, variant string, gen uint64, results []types.ScoredResult) error {
	if s.cache == nil {
		return types.ErrCacheUnavailable
	}
	for i := range results {
		if err := results[i].Validate(); err != nil {
			return fmt.Errorf("result %d: %w", i, err)
		}
	}

	s.lockRead()
	defer s.unlockRead()

	if s.generation() != gen {
		return errCorpusChanged
	}
	s.cache.SetResults(req.Query, req.K, variant, results)
	return nil
}

func (s *Searcher) generation() uint64 {
	if s.gen == nil {
		return 0
	}
	return s.gen()
}

func (s *Searcher) lockRead() {
	if s.readLock != nil {
		s.readLock.Lock()
	}
}

func (s *Searcher) unlockRead() {
	if s.readLock != nil {
		s.readLock.Unlock()
	}
}

// fuse rescores semantic candidates, dedupes by path, filters, sorts and
// truncates to req.K. Only semantic candidates are ever returned.
func fuse(hits []vectorindex.Hit, keywordScores []float64, method types.SearchMethod, alpha float64, req Request) []types.ScoredResult {
	allowed := extensionSet(req.FileTypes)
	seen := make(map[string]struct{}, len(hits))
	results := make([]types.ScoredResult, 0, min(len(hits), req.K))

	for _, hit := range hits {
		// First occurrence has the best semantic rank
		if _, dup := seen[hit.Record.Path]; dup {
			continue
		}
		seen[hit.Record.Path] = struct{}{}

		if allowed != nil {
			if _, ok := allowed[hit.Record.NormalizedExtension()]; !ok {
				continue
			}
		}

		result := types.ScoredResult{
			Record:          hit.Record,
			Distance:        hit.Distance,
			SimilarityScore: hit.Similarity,
			Method:          method,
		}

		hybrid := hit.Similarity
		if method == types.MethodHybrid {
			var keyword float64
			if id := hit.Record.ID; id >= 0 && id < len(keywordScores) {
				keyword = keywordScores[id]
			}
			result.BM25Score = types.Float64(keyword)
			hybrid = alpha*hit.Similarity + (1-alpha)*keyword
		}
		result.HybridScore = types.Float64(hybrid)

		if hybrid < req.MinScore {
			continue
		}
		results = append(results, result)
	}

	// Stable sort keeps semantic order on equal hybrid scores
	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].HybridScore > *results[j].HybridScore
	})

	if len(results) > req.K {
		results = results[:req.K]
	}
	for i := range results {
		results[i].Rank = i + 1
	}
	return results
}

// normalizeScores divides by the maximum score when it is positive
func normalizeScores(scores []float64) []float64 {
	var maxScore float64
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}
	out := make([]float64, len(scores))
	if maxScore <= 0 {
		return out
	}
	for i, s := range scores {
		out[i] = s / maxScore
	}
	return out
}

func candidateCount(k int) int {
	return min(k*OversampleFactor, MaxCandidates)
}

func extensionSet(fileTypes []string) map[string]struct{} {
	if len(fileTypes) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(fileTypes))
	for _, ft := range fileTypes {
		if ext := types.NormalizeExtension(ft); ext != "" {
			set[ext] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// validateRequest ensures search request is valid and applies defaults
func (s *Searcher) validateRequest(req *Request) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return types.ErrEmptyQuery
	}
	if len([]rune(req.Query)) > MaxQueryLength {
		return fmt.Errorf("%w: max %d characters", ErrQueryTooLong, MaxQueryLength)
	}

	if req.Alpha != nil && (*req.Alpha < 0 || *req.Alpha > 1) {
		return fmt.Errorf("%w: got %v", types.ErrInvalidAlpha, *req.Alpha)
	}

	if req.K <= 0 {
		req.K = DefaultK
	}
	if req.K > MaxK {
		req.K = MaxK
	}

	if req.MinScore < 0 {
		req.MinScore = 0
	}

	return nil
}

// variant fingerprints every option that changes the result list, so
// differently parameterized searches never share a cache entry
func (r Request) variant(alpha float64) string {
	exts := make([]string, 0, len(r.FileTypes))
	for ext := range extensionSet(r.FileTypes) {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	return fmt.Sprintf("alpha=%.6f|min=%.6f|context=%t|semantic=%t|types=%s",
		alpha, r.MinScore, r.UseContext, r.SemanticOnly, strings.Join(exts, ","))
}

func (s *Searcher) observe(resp *Response) {
	if s.observer != nil {
		s.observer.ObserveSearch(resp.Method, resp.CacheHit, len(resp.Results), resp.Duration)
	}
}

// Explain renders how a result's hybrid score was assembled
func Explain(result types.ScoredResult, alpha float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: score %.3f", result.Record.Name, derefOr(result.HybridScore, result.SimilarityScore))

	switch {
	case result.BM25Score != nil:
		fmt.Fprintf(&b, " = semantic %.3f x %.0f%% + keyword %.3f x %.0f%%",
			result.SimilarityScore, alpha*100, *result.BM25Score, (1-alpha)*100)
	default:
		fmt.Fprintf(&b, " = semantic %.3f", result.SimilarityScore)
	}

	fmt.Fprintf(&b, " [%s]", result.Method)
	if result.ContextScore != nil {
		fmt.Fprintf(&b, ", context %.3f", *result.ContextScore)
	}
	return b.String()
}

func derefOr(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
