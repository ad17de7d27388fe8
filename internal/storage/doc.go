// Package storage persists vector index snapshots.
//
// A snapshot is two files written side by side:
//   - vectors.bin: a small little-endian header (magic, dimension, count)
//     followed by the zstd-compressed float32 vector block
//   - metadata.db: a SQLite database holding one row per document record
//     and a single snapshot_info row (dimension, document count)
//
// The vector index decides when to write and how to validate the pair;
// this package only encodes and decodes each half.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage(filepath.Join(dir, "metadata.db"))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.SaveRecords(ctx, 384, snapshotID, records); err != nil {
//	    return err
//	}
//
// Existing snapshot files are opened with OpenSQLiteStorage, which never
// migrates and rejects databases outside SupportedSchema.
//
// # Schema
//
// Migrations are versioned with semantic versions and recorded in the
// schema_version table. ApplyMigrations runs every migration newer than the
// recorded version. Snapshots are never downgraded in place; an unsupported
// file is rejected by OpenSQLiteStorage and replaced by the next Snapshot.
//
// # Build Tags
//
// The storage package supports two build configurations:
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Requires C compiler
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec"
//
// Pure Go Build (default, or purego tag):
//
//   - Uses modernc.org/sqlite driver
//
//   - No C compiler required
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
