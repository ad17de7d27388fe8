package vectorindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dshills/docsearch/pkg/types"
)

// DefaultDimension matches the local embedding provider
const DefaultDimension = 384

// Hit is one nearest-neighbour result
type Hit struct {
	Record     types.DocumentRecord
	Distance   float64 // squared Euclidean distance
	Similarity float64 // 1 / (1 + Distance)
}

// Index is an exact squared-L2 nearest-neighbour index paired with
// per-vector document records. Vector i always belongs to record i.
type Index struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	records   []types.DocumentRecord
}

// New creates an empty index of the given dimension
func New(dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: %d", types.ErrInvalidDimension, dimension)
	}
	return &Index{dimension: dimension}, nil
}

// Dimension returns the fixed vector dimension
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Len returns the number of stored vectors
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.records)
}

// Records returns a copy of all records in insertion order
func (idx *Index) Records() []types.DocumentRecord {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]types.DocumentRecord, len(idx.records))
	copy(out, idx.records)
	return out
}

// Insert appends one vector and its record. The record ID is set to the
// insertion index.
func (idx *Index) Insert(vector []float32, record types.DocumentRecord) error {
	return idx.InsertBatch([][]float32{vector}, []types.DocumentRecord{record})
}

// InsertBatch appends all vectors and records or none of them
func (idx *Index) InsertBatch(vectors [][]float32, records []types.DocumentRecord) error {
	if len(vectors) != len(records) {
		return fmt.Errorf("%w: %d vectors, %d records", types.ErrLengthMismatch, len(vectors), len(records))
	}
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("vector %d: %w: expected %d, got %d", i, types.ErrDimensionMismatch, idx.dimension, len(v))
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	base := len(idx.records)
	for i := range vectors {
		v := make([]float32, idx.dimension)
		copy(v, vectors[i])
		r := records[i]
		r.ID = base + i
		idx.vectors = append(idx.vectors, v)
		idx.records = append(idx.records, r)
	}
	return nil
}

// Search returns up to k hits ordered by ascending distance. Equal
// distances keep insertion order.
func (idx *Index) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("query: %w: expected %d, got %d", types.ErrDimensionMismatch, idx.dimension, len(query))
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if k <= 0 || len(idx.vectors) == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, len(idx.vectors))
	for i, v := range idx.vectors {
		d := squaredL2(query, v)
		hits[i] = Hit{
			Record:     idx.records[i],
			Distance:   d,
			Similarity: Similarity(d),
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Clear removes every vector, keeping the dimension
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = nil
	idx.records = nil
}

// replace swaps in restored contents. Callers validate the pair first.
func (idx *Index) replace(vectors [][]float32, records []types.DocumentRecord) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors = vectors
	idx.records = records
}

// Similarity maps a squared distance onto (0, 1]
func Similarity(distance float64) float64 {
	return 1 / (1 + distance)
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
