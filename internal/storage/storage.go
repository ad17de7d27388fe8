package storage

import (
	"context"
	"time"

	"github.com/dshills/docsearch/pkg/types"
)

// MetadataStore persists the document records of a vector index snapshot
type MetadataStore interface {
	// SaveRecords replaces all stored records in one transaction
	SaveRecords(ctx context.Context, dimension int, snapshotID int64, records []types.DocumentRecord) error
	// LoadRecords returns the stored records ordered by ID
	LoadRecords(ctx context.Context) ([]types.DocumentRecord, error)
	// SnapshotInfo returns the header written by the last SaveRecords
	SnapshotInfo(ctx context.Context) (*SnapshotInfo, error)
	// Close releases the database
	Close() error
}

// SnapshotInfo describes a saved metadata snapshot
type SnapshotInfo struct {
	Dimension     int
	DocumentCount int
	SnapshotID    int64
	SavedAt       time.Time
	SchemaVersion string
}
