// Package rerank reorders search results using document context: the raw
// semantic similarity, a recency signal, a per-extension type weight and a
// size signal saturating at 10000 bytes.
//
//	context = 0.5*similarity + 0.2*recency + 0.2*type + 0.1*size
//
// Each breakdown also carries the excerpt's most frequent keywords and a
// content category (education, finance, technology or general). Neither
// feeds the score.
//
// Reranking is a pure function of its input and never mutates it.
package rerank
