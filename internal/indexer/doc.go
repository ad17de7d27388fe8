// Package indexer turns documents into index entries: extract text, embed
// it and insert the results into a Store as one atomic batch.
//
// # Basic Usage
//
//	idx := indexer.New(eng, emb, &indexer.Config{Workers: 4, Persist: true})
//
//	stats, err := idx.IndexDirectory(ctx, "/srv/shared/docs", &indexer.ScanOptions{
//	    FileTypes: []string{".pdf", ".docx"},
//	    MaxFiles:  500,
//	})
//
//	fmt.Printf("Indexed %d documents in %v\n", stats.DocumentsIndexed, stats.Duration)
//
// Callers that already hold text use IndexDocuments with DocumentInput
// values instead.
//
// # Pipeline
//
//  1. Scan: walk the directory in lexical order, skipping dot entries
//  2. Extract: read text from .pdf, .docx, .txt and .md files
//  3. Truncate: at most MaxTextChars characters go to the embedder, and
//     the first ExcerptChars are kept on the record for keyword scoring
//  4. Embed: Workers concurrent embedding calls via errgroup
//  5. Insert: every success in one IndexBatch call, in input order
//  6. Persist: optionally save a snapshot
//
// A document that cannot be read or embedded is reported in
// Statistics.ErrorMessages and the run continues. Cancelling ctx aborts
// the run before anything is inserted.
//
// # Concurrency
//
// Only one run may be active per Indexer. A second call returns
// ErrIndexingInProgress immediately instead of queueing. Progress can be
// polled while a run is active.
package indexer
