package types

import "errors"

// Structural errors, surfaced to callers
var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrLengthMismatch    = errors.New("vector and record counts differ")
	ErrCorruptSnapshot   = errors.New("corrupt snapshot")
	ErrSnapshotNotFound  = errors.New("snapshot not found")
	ErrInvalidDimension  = errors.New("dimension must be positive")
)

// Degraded-capability conditions, absorbed by the ranker
var (
	ErrCacheUnavailable    = errors.New("cache unavailable")
	ErrKeywordIndexUnready = errors.New("keyword index not built")
)

// Request validation errors
var (
	ErrEmptyQuery   = errors.New("query cannot be empty")
	ErrInvalidAlpha = errors.New("alpha must be between 0 and 1")
)

// Record validation errors
var (
	ErrEmptyPath         = errors.New("document path is required")
	ErrNegativeSize      = errors.New("document size cannot be negative")
	ErrInvalidRank       = errors.New("rank must be >= 1")
	ErrInvalidSimilarity = errors.New("similarity score must be in (0, 1]")
)
