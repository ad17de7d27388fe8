package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/docsearch/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrUnsupportedSchema is returned when an existing database was written
	// by an incompatible schema
	ErrUnsupportedSchema = errors.New("unsupported schema")
)

// SQLiteStorage implements MetadataStore using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings.
// Snapshot files are moved into place with rename, so the rollback journal
// is used instead of WAL to avoid side files.
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens or creates a metadata database and applies migrations
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// OpenSQLiteStorage opens an existing metadata database without migrating it.
// It fails with ErrUnsupportedSchema when the file is not a compatible snapshot.
func OpenSQLiteStorage(ctx context.Context, dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := CheckSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SaveRecords replaces the stored records and snapshot header atomically.
// snapshotID ties the records to the vector block written with them.
func (s *SQLiteStorage) SaveRecords(ctx context.Context, dimension int, snapshotID int64, records []types.DocumentRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM documents"); err != nil {
		return fmt.Errorf("failed to clear documents: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM snapshot_info"); err != nil {
		return fmt.Errorf("failed to clear snapshot info: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (id, path, name, extension, size_bytes, text_excerpt)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err = stmt.ExecContext(ctx, r.ID, r.Path, r.Name, r.Extension, r.SizeBytes, r.TextExcerpt); err != nil {
			return fmt.Errorf("failed to insert document %d: %w", r.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_info (id, dimension, document_count, snapshot_id, saved_at)
		VALUES (1, ?, ?, ?, ?)
	`, dimension, len(records), snapshotID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write snapshot info: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// LoadRecords returns all records ordered by ID
func (s *SQLiteStorage) LoadRecords(ctx context.Context) ([]types.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, name, extension, size_bytes, text_excerpt
		FROM documents
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	records := make([]types.DocumentRecord, 0)
	for rows.Next() {
		var r types.DocumentRecord
		if err := rows.Scan(&r.ID, &r.Path, &r.Name, &r.Extension, &r.SizeBytes, &r.TextExcerpt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read documents: %w", err)
	}
	return records, nil
}

// SnapshotInfo returns the snapshot header, or ErrNotFound if none was saved
func (s *SQLiteStorage) SnapshotInfo(ctx context.Context) (*SnapshotInfo, error) {
	var info SnapshotInfo
	err := s.db.QueryRowContext(ctx, `
		SELECT dimension, document_count, snapshot_id, saved_at
		FROM snapshot_info
		WHERE id = 1
	`).Scan(&info.Dimension, &info.DocumentCount, &info.SnapshotID, &info.SavedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot info: %w", err)
	}

	v, err := CurrentVersion(ctx, s.db)
	if err != nil {
		return nil, err
	}
	info.SchemaVersion = v.String()
	return &info, nil
}
