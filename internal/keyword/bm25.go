package keyword

import (
	"math"
	"strings"
	"sync"
)

const (
	// K1 controls term frequency saturation
	K1 = 1.5
	// B controls document length normalization
	B = 0.75
)

// stopWords are dropped during tokenization
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "been": {}, "be": {},
}

// Index holds BM25 term statistics for one corpus snapshot.
// Scores are indexed by corpus position.
type Index struct {
	mu        sync.RWMutex
	built     bool
	termFreqs []map[string]int // per document
	docLens   []int
	idf       map[string]float64
	avgDocLen float64
}

// New creates an unbuilt index
func New() *Index {
	return &Index{idf: make(map[string]float64)}
}

// Tokenize lowercases text, splits on whitespace and drops stop words
func Tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Rebuild replaces the term statistics with ones computed over corpus
func (idx *Index) Rebuild(corpus []string) {
	termFreqs := make([]map[string]int, len(corpus))
	docLens := make([]int, len(corpus))
	docFreqs := make(map[string]int)

	var totalLen int
	for i, doc := range corpus {
		tokens := Tokenize(doc)
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			docFreqs[t]++
		}
		termFreqs[i] = tf
		docLens[i] = len(tokens)
		totalLen += len(tokens)
	}

	n := float64(len(corpus))
	idf := make(map[string]float64, len(docFreqs))
	for t, df := range docFreqs {
		idf[t] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}

	var avg float64
	if len(corpus) > 0 {
		avg = float64(totalLen) / n
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.termFreqs = termFreqs
	idx.docLens = docLens
	idx.idf = idf
	idx.avgDocLen = avg
	idx.built = true
}

// Clear drops all statistics, leaving the index unbuilt
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.termFreqs = nil
	idx.docLens = nil
	idx.idf = make(map[string]float64)
	idx.avgDocLen = 0
	idx.built = false
}

// Ready reports whether the index was built over a non-empty corpus
func (idx *Index) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.built && len(idx.docLens) > 0
}

// Len returns the corpus size
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docLens)
}

// Score returns one BM25 score per document. Documents containing none of the
// query terms score 0; an empty corpus yields an empty slice.
func (idx *Index) Score(query string) []float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make([]float64, len(idx.docLens))
	if len(scores) == 0 {
		return scores
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return scores
	}

	for i, tf := range idx.termFreqs {
		// Guard against a corpus of only stop words
		norm := 1.0
		if idx.avgDocLen > 0 {
			norm = 1 - B + B*float64(idx.docLens[i])/idx.avgDocLen
		}

		var score float64
		for _, term := range queryTokens {
			freq, ok := tf[term]
			if !ok {
				continue
			}
			f := float64(freq)
			score += idx.idf[term] * (f * (K1 + 1)) / (f + K1*norm)
		}
		scores[i] = score
	}

	return scores
}
