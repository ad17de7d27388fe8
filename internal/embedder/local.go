package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const localModel = "feature-hash-v1"

// LocalProvider embeds text offline by hashing word unigrams and bigrams
// into a fixed number of signed buckets. Texts sharing vocabulary land
// close together; there is no notion of synonyms.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a local embedder. A non-positive dimension
// selects DefaultDimension.
func NewLocalProvider(dimension int) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &LocalProvider{dimension: dimension}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Embedding{
		Vector:    l.encode(req.Text),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     localModel,
		Hash:      ComputeHash(req.Text),
	}, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      localModel,
	}, nil
}

// encode returns a unit-length vector, or the zero vector when text has no
// alphanumeric tokens
func (l *LocalProvider) encode(text string) []float32 {
	vector := make([]float32, l.dimension)
	tokens := tokenizeAlphaNum(text)

	for i, tok := range tokens {
		l.addFeature(vector, tok, 1.0)
		if i > 0 {
			l.addFeature(vector, tokens[i-1]+" "+tok, 0.5)
		}
	}

	return NormalizeVector(vector)
}

func (l *LocalProvider) addFeature(vector []float32, feature string, weight float32) {
	h := hashToken(feature)
	bucket := int(h % uint32(l.dimension))
	// High bit picks the sign so collisions tend to cancel
	if h&(1<<31) != 0 {
		weight = -weight
	}
	vector[bucket] += weight
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return localModel
}

func (l *LocalProvider) Close() error {
	return nil
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

func tokenizeAlphaNum(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizeVector normalizes a vector to unit length
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
