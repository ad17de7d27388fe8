// Package types provides shared type definitions for the docsearch engine.
//
// This package defines the domain types used across the vector index, the
// keyword index, the hybrid ranker and the calling layer.
//
// # Core Types
//
// DocumentRecord is the metadata stored next to every indexed vector. Its ID
// is the insertion index, which is also the document's corpus position in the
// keyword index:
//
//	record := types.DocumentRecord{
//	    Path:        "/docs/report.pdf",
//	    Name:        "report.pdf",
//	    Extension:   ".pdf",
//	    SizeBytes:   48213,
//	    TextExcerpt: "Quarterly revenue grew ...",
//	}
//
// ScoredResult is produced per query and never persisted. Optional score
// components are pointers so callers can tell "not computed" from zero:
//
//	if result.BM25Score != nil {
//	    fmt.Printf("keyword: %.3f\n", *result.BM25Score)
//	}
//
// # Errors
//
// Structural errors (ErrDimensionMismatch, ErrLengthMismatch,
// ErrCorruptSnapshot) are surfaced to callers. Degraded-capability conditions
// (ErrCacheUnavailable, ErrKeywordIndexUnready) are absorbed by the ranker and
// made visible through SearchMethod.
package types
