// Package vectorindex provides an exact nearest-neighbour index over
// fixed-dimension float32 vectors, each paired with a document record.
//
// Distances are squared Euclidean (no square root) and similarity is
// 1/(1+distance). Search scans every vector, which keeps results exact and
// deterministic: equal distances are returned in insertion order.
//
// Snapshot and Restore persist the index as vectors.bin plus metadata.db
// in one directory; see the storage package for the file formats.
package vectorindex
