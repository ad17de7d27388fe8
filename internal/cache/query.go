package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/docsearch/pkg/types"
)

// Names reported by QueryCache.Stats
const (
	EmbeddingCacheName = "embedding"
	ResultCacheName    = "result"
)

// QueryConfig sizes the two query caches
type QueryConfig struct {
	EmbeddingMaxSize int
	EmbeddingTTL     time.Duration
	ResultMaxSize    int
	ResultTTL        time.Duration
}

// DefaultQueryConfig returns the sizes used when nothing is configured
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		EmbeddingMaxSize: 500,
		EmbeddingTTL:     2 * time.Hour,
		ResultMaxSize:    200,
		ResultTTL:        30 * time.Minute,
	}
}

// QueryCache memoizes query embeddings and ranked result sets.
// A nil *QueryCache is usable and always misses.
type QueryCache struct {
	embeddings *Cache[string, []float32]
	results    *Cache[string, []types.ScoredResult]
}

// NewQueryCache creates both caches from cfg
func NewQueryCache(cfg QueryConfig, opts ...Option) *QueryCache {
	return &QueryCache{
		embeddings: New[string, []float32](cfg.EmbeddingMaxSize, cfg.EmbeddingTTL, opts...),
		results:    New[string, []types.ScoredResult](cfg.ResultMaxSize, cfg.ResultTTL, opts...),
	}
}

// GetEmbedding returns a copy of the cached embedding for query
func (q *QueryCache) GetEmbedding(query string) ([]float32, bool) {
	if q == nil {
		return nil, false
	}
	vec, ok := q.embeddings.Get(EmbeddingKey(query))
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// SetEmbedding caches a copy of vec for query
func (q *QueryCache) SetEmbedding(query string, vec []float32) {
	if q == nil {
		return
	}
	stored := make([]float32, len(vec))
	copy(stored, vec)
	q.embeddings.Set(EmbeddingKey(query), stored)
}

// GetResults returns a deep copy of the cached results for (query, k, variant)
func (q *QueryCache) GetResults(query string, k int, variant string) ([]types.ScoredResult, bool) {
	if q == nil {
		return nil, false
	}
	results, ok := q.results.Get(ResultKey(query, k, variant))
	if !ok {
		return nil, false
	}
	return types.CloneResults(results), true
}

// SetResults caches a deep copy of results for (query, k, variant)
func (q *QueryCache) SetResults(query string, k int, variant string, results []types.ScoredResult) {
	if q == nil {
		return
	}
	q.results.Set(ResultKey(query, k, variant), types.CloneResults(results))
}

// PurgeResults drops cached result sets, keeping counters and embeddings.
// Called whenever the corpus changes.
func (q *QueryCache) PurgeResults() {
	if q == nil {
		return
	}
	q.results.Purge()
}

// Clear empties both caches and resets their counters
func (q *QueryCache) Clear() {
	if q == nil {
		return
	}
	q.embeddings.Clear()
	q.results.Clear()
}

// Stats reports counters for both caches keyed by cache name
func (q *QueryCache) Stats() map[string]Stats {
	if q == nil {
		return map[string]Stats{}
	}
	return map[string]Stats{
		EmbeddingCacheName: q.embeddings.Stats(),
		ResultCacheName:    q.results.Stats(),
	}
}

// NormalizeQuery trims and lowercases a query
func NormalizeQuery(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// EmbeddingKey hashes the normalized query
func EmbeddingKey(query string) string {
	return hashKey(NormalizeQuery(query))
}

// ResultKey hashes the normalized query together with k and an option
// fingerprint, so different result counts or ranking options never collide
func ResultKey(query string, k int, variant string) string {
	var data strings.Builder
	data.WriteString(NormalizeQuery(query))
	data.WriteString("|k=")
	data.WriteString(strconv.Itoa(k))
	if variant != "" {
		data.WriteString("|")
		data.WriteString(variant)
	}
	return hashKey(data.String())
}

func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
