package rerank

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dshills/docsearch/pkg/types"
)

// Weights blends the four context signals into one score
type Weights struct {
	Similarity float64
	Recency    float64
	Type       float64
	Size       float64
}

// DefaultWeights returns the standard blend
func DefaultWeights() Weights {
	return Weights{Similarity: 0.5, Recency: 0.2, Type: 0.2, Size: 0.1}
}

// DefaultTypeWeights boosts richer document formats
func DefaultTypeWeights() map[string]float64 {
	return map[string]float64{
		".pdf":  1.2,
		".docx": 1.1,
		".txt":  1.0,
	}
}

const (
	// sizeSaturation is the size in bytes at which the size signal reaches 1
	sizeSaturation = 10000
	// recencyScore is constant until modification times are tracked
	recencyScore = 1.0
	// defaultTypeWeight applies to unlisted extensions
	defaultTypeWeight = 1.0
)

// ContextReranker reorders results using document context signals
type ContextReranker struct {
	weights     Weights
	typeWeights map[string]float64
	categories  []Category
}

// Option configures a ContextReranker
type Option func(*ContextReranker)

// WithWeights overrides the signal blend
func WithWeights(w Weights) Option {
	return func(r *ContextReranker) {
		r.weights = w
	}
}

// WithTypeWeights overrides the per-extension weights. Keys are normalized.
func WithTypeWeights(tw map[string]float64) Option {
	return func(r *ContextReranker) {
		r.typeWeights = make(map[string]float64, len(tw))
		for ext, w := range tw {
			r.typeWeights[types.NormalizeExtension(ext)] = w
		}
	}
}

// WithCategories overrides the content categories
func WithCategories(c []Category) Option {
	return func(r *ContextReranker) {
		r.categories = c
	}
}

// New creates a ContextReranker with default weights
func New(opts ...Option) *ContextReranker {
	r := &ContextReranker{
		weights:     DefaultWeights(),
		typeWeights: DefaultTypeWeights(),
		categories:  DefaultCategories(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultReranker = New()

// Rerank applies the default ContextReranker
func Rerank(results []types.ScoredResult, query string) []types.ScoredResult {
	return defaultReranker.Rerank(results, query)
}

// Rerank returns a new slice sorted by context score descending with ranks
// reassigned from 1. Every result gets a ContextScore and ContextBreakdown.
// The input slice is not modified. The query is accepted for interface
// stability; no current signal depends on it.
func (r *ContextReranker) Rerank(results []types.ScoredResult, query string) []types.ScoredResult {
	out := types.CloneResults(results)
	if len(out) == 0 {
		return out
	}

	for i := range out {
		breakdown := r.breakdown(&out[i].Record, out[i].SimilarityScore)
		score := r.weights.Similarity*breakdown.Similarity +
			r.weights.Recency*breakdown.Recency +
			r.weights.Type*breakdown.Type +
			r.weights.Size*breakdown.Size
		out[i].ContextScore = types.Float64(score)
		out[i].ContextBreakdown = &breakdown
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].ContextScore > *out[j].ContextScore
	})

	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func (r *ContextReranker) breakdown(rec *types.DocumentRecord, similarity float64) types.ContextBreakdown {
	return types.ContextBreakdown{
		Similarity: similarity,
		Recency:    recencyScore,
		Type:       r.typeWeight(rec.NormalizedExtension()),
		Size:       sizeScore(rec.SizeBytes),
		Category:   classify(r.categories, rec.TextExcerpt),
		Keywords:   ExtractKeywords(rec.TextExcerpt),
	}
}

func (r *ContextReranker) typeWeight(ext string) float64 {
	if w, ok := r.typeWeights[ext]; ok {
		return w
	}
	return defaultTypeWeight
}

func sizeScore(size int64) float64 {
	if size <= 0 {
		return 0
	}
	return math.Min(float64(size)/sizeSaturation, 1)
}

// Explain renders a result's context score using the default weights
func Explain(result types.ScoredResult) string {
	return defaultReranker.Explain(result)
}

// Explain renders how a result's context score was assembled
func (r *ContextReranker) Explain(result types.ScoredResult) string {
	if result.ContextScore == nil || result.ContextBreakdown == nil {
		return "context score not computed"
	}
	w := r.weights
	b := result.ContextBreakdown
	out := fmt.Sprintf("context=%.4f (similarity %.4f*%.2f + recency %.4f*%.2f + type %.4f*%.2f + size %.4f*%.2f)",
		*result.ContextScore,
		b.Similarity, w.Similarity,
		b.Recency, w.Recency,
		b.Type, w.Type,
		b.Size, w.Size,
	)
	if b.Category != "" {
		out += " category=" + b.Category
	}
	if len(b.Keywords) > 0 {
		out += " keywords=" + strings.Join(b.Keywords, ",")
	}
	return out
}
