package types

// SearchMethod tags which retrieval path produced a result
type SearchMethod string

const (
	MethodHybrid       SearchMethod = "hybrid"        // Semantic candidates rescored with BM25
	MethodSemanticOnly SearchMethod = "semantic_only" // Keyword index unavailable
	MethodCached       SearchMethod = "cached"        // Served from the result cache
)

// ContextBreakdown holds the four signals folded into a context score,
// plus descriptive features of the excerpt that do not affect it
type ContextBreakdown struct {
	Similarity float64  `json:"similarity"`
	Recency    float64  `json:"recency"`
	Type       float64  `json:"type"`
	Size       float64  `json:"size"`
	Category   string   `json:"category,omitempty"`
	Keywords   []string `json:"keywords,omitempty"`
}

// ScoredResult is one ranked document for a query
type ScoredResult struct {
	Record DocumentRecord `json:"record"`
	Rank   int            `json:"rank"` // Position in result set (1-based)

	// Scoring
	Distance         float64           `json:"distance"`
	SimilarityScore  float64           `json:"similarity_score"`
	BM25Score        *float64          `json:"bm25_score,omitempty"` // Normalized to [0, 1]
	HybridScore      *float64          `json:"hybrid_score,omitempty"`
	ContextScore     *float64          `json:"context_score,omitempty"`
	ContextBreakdown *ContextBreakdown `json:"context_breakdown,omitempty"`

	Method SearchMethod `json:"method"`
}

// Validate checks if the scored result is well formed
func (sr *ScoredResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	if sr.SimilarityScore <= 0 || sr.SimilarityScore > 1 {
		return ErrInvalidSimilarity
	}
	return sr.Record.Validate()
}

// Clone returns a deep copy so cached results cannot be mutated by callers
func (sr ScoredResult) Clone() ScoredResult {
	out := sr
	out.BM25Score = copyFloat(sr.BM25Score)
	out.HybridScore = copyFloat(sr.HybridScore)
	out.ContextScore = copyFloat(sr.ContextScore)
	if sr.ContextBreakdown != nil {
		breakdown := *sr.ContextBreakdown
		if breakdown.Keywords != nil {
			breakdown.Keywords = append([]string(nil), breakdown.Keywords...)
		}
		out.ContextBreakdown = &breakdown
	}
	return out
}

// CloneResults deep-copies a result slice
func CloneResults(results []ScoredResult) []ScoredResult {
	if results == nil {
		return nil
	}
	out := make([]ScoredResult, len(results))
	for i := range results {
		out[i] = results[i].Clone()
	}
	return out
}

// Float64 returns a pointer to v
func Float64(v float64) *float64 {
	return &v
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
