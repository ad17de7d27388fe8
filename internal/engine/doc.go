// Package engine wires the vector index, keyword index, query caches and
// hybrid ranker into one service object.
//
// An Engine is built once at startup and shared by every caller:
//
//	cfg, _ := config.Load(path)
//	emb, _ := embedder.New(embedder.Config{Provider: cfg.Embedder.Provider, Dimension: cfg.Dimension})
//	eng, err := engine.New(cfg, emb, engine.WithLogger(logger))
//	defer eng.Close()
//
//	_ = eng.IndexBatch(vectors, records)
//	resp, _ := eng.Search(ctx, searcher.Request{Query: "travel policy"})
//
// Every mutation rebuilds the keyword statistics and drops cached result
// lists while holding the engine write lock. Searches hold the read lock
// only while reading the indexes, never while embedding.
package engine
