package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch/pkg/types"
)

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, EmbeddingKey("Cats and Dogs"), EmbeddingKey("  cats and dogs\n"))
	assert.NotEqual(t, EmbeddingKey("cats"), EmbeddingKey("dogs"))

	assert.Equal(t, ResultKey(" Cats", 5, ""), ResultKey("cats ", 5, ""))
	assert.NotEqual(t, ResultKey("cats", 5, ""), ResultKey("cats", 6, ""))
	assert.NotEqual(t, ResultKey("cats", 5, "alpha=0.7"), ResultKey("cats", 5, "alpha=1"))

	assert.Len(t, EmbeddingKey("anything"), 64, "sha256 hex")
}

func TestQueryCacheEmbeddingCopies(t *testing.T) {
	q := NewQueryCache(DefaultQueryConfig())

	vec := []float32{1, 2, 3}
	q.SetEmbedding("Query", vec)
	vec[0] = 99

	got, ok := q.GetEmbedding("query ")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)

	got[1] = 42
	again, _ := q.GetEmbedding("query")
	assert.Equal(t, float32(2), again[1])
}

func TestQueryCacheResultsCopies(t *testing.T) {
	q := NewQueryCache(DefaultQueryConfig())

	results := []types.ScoredResult{{
		Record:          types.DocumentRecord{Path: "/a.txt"},
		Rank:            1,
		SimilarityScore: 0.9,
		HybridScore:     types.Float64(0.8),
	}}
	q.SetResults("q", 5, "", results)
	*results[0].HybridScore = 0

	got, ok := q.GetResults("Q", 5, "")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, 0.8, *got[0].HybridScore)

	_, ok = q.GetResults("q", 6, "")
	assert.False(t, ok)
}

func TestQueryCachePurgeResults(t *testing.T) {
	q := NewQueryCache(DefaultQueryConfig())
	q.SetEmbedding("q", []float32{1})
	q.SetResults("q", 1, "", []types.ScoredResult{{Rank: 1}})

	q.PurgeResults()

	_, ok := q.GetResults("q", 1, "")
	assert.False(t, ok)
	_, ok = q.GetEmbedding("q")
	assert.True(t, ok)
}

func TestQueryCacheStatsAndClear(t *testing.T) {
	clock := newFakeClock()
	q := NewQueryCache(QueryConfig{
		EmbeddingMaxSize: 2,
		EmbeddingTTL:     time.Minute,
		ResultMaxSize:    3,
		ResultTTL:        time.Minute,
	}, WithClock(clock.Now))

	q.SetEmbedding("a", []float32{1})
	q.GetEmbedding("a")
	q.GetResults("a", 1, "")

	stats := q.Stats()
	require.Contains(t, stats, EmbeddingCacheName)
	require.Contains(t, stats, ResultCacheName)
	assert.Equal(t, int64(1), stats[EmbeddingCacheName].Hits)
	assert.Equal(t, int64(1), stats[ResultCacheName].Misses)
	assert.Equal(t, 3, stats[ResultCacheName].MaxSize)

	q.Clear()
	stats = q.Stats()
	assert.Equal(t, int64(0), stats[EmbeddingCacheName].Hits)
	assert.Equal(t, 0, stats[EmbeddingCacheName].Size)
}

func TestNilQueryCacheAlwaysMisses(t *testing.T) {
	var q *QueryCache

	q.SetEmbedding("q", []float32{1})
	_, ok := q.GetEmbedding("q")
	assert.False(t, ok)

	q.SetResults("q", 1, "", nil)
	_, ok = q.GetResults("q", 1, "")
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		q.Clear()
		q.PurgeResults()
	})
	assert.Empty(t, q.Stats())
}
