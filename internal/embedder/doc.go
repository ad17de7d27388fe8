// Package embedder turns text into dense vectors for the vector index.
//
// Three providers implement Embedder:
//
//   - local: offline feature hashing of word unigrams and bigrams into
//     signed buckets, normalized to unit length. Deterministic and
//     dependency free; good enough for vocabulary overlap, not synonyms.
//   - jina and openai: HTTP clients for OpenAI-compatible embeddings APIs,
//     asking the API for the configured output dimension.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", Dimension: 384})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: "quarterly revenue report",
//	})
//
// # Provider Selection
//
// NewFromEnv selects a provider from the environment:
//
//  1. If DOCSEARCH_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if JINA_API_KEY is set → use Jina AI
//  3. Else if OPENAI_API_KEY is set → use OpenAI
//  4. Else → local provider (offline mode)
//
// # Error Handling
//
// Remote calls retry transient failures (network errors, 5xx, 429) with
// exponential backoff. Other 4xx responses fail immediately. Requests pass
// a token bucket (WithRateLimit) and a per-provider circuit breaker that
// opens after DefaultBreakerFailures consecutive failed batches:
//
//	_, err := emb.GenerateBatch(ctx, req)
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // API unavailable or rejected the request
//	}
//
// Embeddings are not cached here; query embeddings are memoized by the
// searcher's cache.
package embedder
