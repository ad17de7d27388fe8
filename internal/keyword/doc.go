// Package keyword implements the BM25 keyword scorer used as the re-ranking
// signal of hybrid search.
//
// The index is built explicitly from the full corpus with Rebuild and is
// never rebuilt implicitly by Score. Tokenization lowercases, splits on
// whitespace and drops a small fixed stop-word set; there is no stemming.
//
//	idx := keyword.New()
//	idx.Rebuild([]string{"cat dog", "dog bird", "cat cat cat"})
//	scores := idx.Score("cat") // one score per document, by corpus position
//
// Scoring uses k1 = 1.5, b = 0.75 and
// idf(t) = ln((N - df(t) + 0.5) / (df(t) + 0.5) + 1).
package keyword
