// Package cache provides the thread-safe TTL + LRU cache used to memoize
// query embeddings and ranked result sets.
//
// # Basic Usage
//
//	c := cache.New[string, int](100, time.Minute)
//	c.Set("answer", 42)
//	v, ok := c.Get("answer")
//
// A lookup misses when the key is absent or its entry is older than its TTL.
// Expired entries are removed on lookup and counted as an expiration and a
// miss. Inserting a new key into a full cache evicts the least recently used
// entry.
//
// # Query Caches
//
// QueryCache pairs two caches: query -> embedding and (query, k, options) ->
// results. Keys are SHA-256 hashes of the trimmed, lowercased query, so
// "Cats " and "cats" share an entry while different k values do not.
//
// A nil *QueryCache is valid and behaves as a cache that always misses; this
// is how a disabled cache degrades without failing searches.
package cache
