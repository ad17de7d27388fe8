// Package searcher ranks indexed documents for a natural language query by
// fusing semantic similarity with BM25 keyword relevance.
//
// # Basic Usage
//
//	s := searcher.New(vectorIndex, keywordIndex, emb,
//	    searcher.WithCache(queryCache),
//	    searcher.WithReranker(rerank.New()),
//	)
//
//	resp, err := s.Search(ctx, searcher.Request{
//	    Query:      "quarterly revenue forecast",
//	    K:          5,
//	    UseContext: true,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Println(searcher.Explain(r, resp.Alpha))
//	}
//
// # Pipeline
//
// A search runs these stages:
//
//  1. Result cache lookup keyed by normalized query, k and every option
//     that changes the result list
//  2. Query embedding through the embedding cache. Concurrent requests for
//     the same query share one provider call.
//  3. Semantic retrieval of min(k*3, 100) nearest candidates
//  4. Keyword scoring of the whole corpus, normalized by the maximum score
//  5. Fusion: hybrid = alpha*similarity + (1-alpha)*bm25
//  6. Dedup by path, file type and min score filters, sort, truncate to k
//  7. Optional context reranking
//
// Only semantic candidates can appear in results. A document that matches
// every keyword but sits outside the candidate pool is never returned.
//
// # Fallback
//
// When the keyword index is missing or empty, or the request sets
// SemanticOnly, results are tagged semantic_only and the hybrid score
// equals the similarity score.
//
// # Caching
//
// Non-empty result lists are cached. A hit returns Method "cached" while
// each result keeps the method that produced it. Empty lists are not
// cached so documents indexed later become visible at once.
package searcher
