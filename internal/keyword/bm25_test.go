package keyword

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases", "Cat DOG", []string{"cat", "dog"}},
		{"drops stop words", "the cat and the dog", []string{"cat", "dog"}},
		{"whitespace only", "  \t\n ", []string{}},
		{"keeps punctuation attached", "cat, dog.", []string{"cat,", "dog."}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokenize(tt.text))
		})
	}
}

func TestScoreExampleCorpus(t *testing.T) {
	idx := New()
	idx.Rebuild([]string{"cat dog", "dog bird", "cat cat cat"})

	scores := idx.Score("cat")
	require.Len(t, scores, 3)

	assert.Greater(t, scores[2], scores[0], "document 3 repeats the term")
	assert.Greater(t, scores[0], 0.0)
	assert.Equal(t, 0.0, scores[1], "document 2 has no query term")
}

func TestScoreMatchesFormula(t *testing.T) {
	idx := New()
	idx.Rebuild([]string{"cat dog", "dog bird", "cat cat cat"})

	// N=3, df(cat)=2 -> idf = ln(1.5/2.5 + 1); avgdl = (2+2+3)/3
	idf := 0.47000362924573563
	avgdl := 7.0 / 3.0
	want := idf * (1 * (K1 + 1)) / (1 + K1*(1-B+B*2/avgdl))

	scores := idx.Score("cat")
	assert.InDelta(t, want, scores[0], 1e-9)
}

func TestScoreMonotonicInTermFrequency(t *testing.T) {
	prev := -1.0
	for n := 1; n <= 5; n++ {
		doc := ""
		for i := 0; i < n; i++ {
			doc += "cat "
		}
		idx := New()
		// Fixed companion documents keep idf and avgdl comparable
		idx.Rebuild([]string{doc + "filler", "dog bird", "fish"})
		score := idx.Score("cat")[0]
		assert.GreaterOrEqual(t, score, prev, "tf=%d", n)
		prev = score
	}
}

func TestScoreDegenerateCases(t *testing.T) {
	t.Run("empty corpus", func(t *testing.T) {
		idx := New()
		idx.Rebuild(nil)
		assert.Empty(t, idx.Score("cat"))
		assert.False(t, idx.Ready())
	})

	t.Run("never built", func(t *testing.T) {
		idx := New()
		assert.Empty(t, idx.Score("cat"))
		assert.False(t, idx.Ready())
	})

	t.Run("empty query", func(t *testing.T) {
		idx := New()
		idx.Rebuild([]string{"cat", "dog"})
		assert.Equal(t, []float64{0, 0}, idx.Score(""))
	})

	t.Run("only stop words in query", func(t *testing.T) {
		idx := New()
		idx.Rebuild([]string{"cat", "dog"})
		assert.Equal(t, []float64{0, 0}, idx.Score("the and of"))
	})

	t.Run("corpus of stop words", func(t *testing.T) {
		idx := New()
		idx.Rebuild([]string{"the", "a an"})
		assert.Equal(t, []float64{0, 0}, idx.Score("cat"))
	})
}

func TestRebuildAndClear(t *testing.T) {
	idx := New()
	idx.Rebuild([]string{"cat"})
	assert.True(t, idx.Ready())
	assert.Equal(t, 1, idx.Len())

	idx.Rebuild([]string{"dog", "bird"})
	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []float64{0, 0}, idx.Score("cat"), "old corpus is gone")

	idx.Clear()
	assert.False(t, idx.Ready())
	assert.Equal(t, 0, idx.Len())
}

func TestConcurrentScoreAndRebuild(t *testing.T) {
	idx := New()
	idx.Rebuild([]string{"cat dog", "dog bird"})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				scores := idx.Score("dog")
				assert.Contains(t, []int{2, 3}, len(scores))
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if j%2 == 0 {
					idx.Rebuild([]string{"cat dog", "dog bird", "dog"})
				} else {
					idx.Rebuild([]string{"cat dog", "dog bird"})
				}
			}
		}()
	}
	wg.Wait()
}
