package vectorindex

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dshills/docsearch/internal/storage"
	"github.com/dshills/docsearch/pkg/types"
)

const (
	// VectorsFile holds the compressed vector block
	VectorsFile = "vectors.bin"
	// MetadataFile holds the document records
	MetadataFile = "metadata.db"
)

// Snapshot writes the index to dir. Both files are written to temporary
// names first and renamed into place once complete. They carry the same
// snapshot ID so Restore can detect a pair that was only half replaced.
func (idx *Index) Snapshot(dir string) error {
	// Stored vectors are never mutated in place, so the slice header taken
	// under the lock stays valid after it is released.
	idx.mu.RLock()
	vectors := idx.vectors
	records := make([]types.DocumentRecord, len(idx.records))
	copy(records, idx.records)
	idx.mu.RUnlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	id, err := newSnapshotID()
	if err != nil {
		return err
	}

	vecTmp, err := writeVectorsTemp(dir, idx.dimension, id, vectors)
	if err != nil {
		return err
	}
	defer os.Remove(vecTmp)

	metaTmp, err := writeMetadataTemp(dir, idx.dimension, id, records)
	if err != nil {
		return err
	}
	defer os.Remove(metaTmp)

	if err := os.Rename(metaTmp, filepath.Join(dir, MetadataFile)); err != nil {
		return fmt.Errorf("failed to install metadata file: %w", err)
	}
	if err := os.Rename(vecTmp, filepath.Join(dir, VectorsFile)); err != nil {
		return fmt.Errorf("failed to install vectors file: %w", err)
	}
	return nil
}

// newSnapshotID returns a random non-negative ID
func newSnapshotID() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("failed to generate snapshot id: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:]) >> 1), nil
}

func writeVectorsTemp(dir string, dimension int, id int64, vectors [][]float32) (string, error) {
	f, err := os.CreateTemp(dir, "vectors-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create vectors file: %w", err)
	}
	name := f.Name()

	if err := storage.WriteVectors(f, dimension, id, vectors); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to sync vectors file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to close vectors file: %w", err)
	}
	return name, nil
}

func writeMetadataTemp(dir string, dimension int, id int64, records []types.DocumentRecord) (string, error) {
	f, err := os.CreateTemp(dir, "metadata-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create metadata file: %w", err)
	}
	name := f.Name()
	_ = f.Close()

	db, err := storage.NewSQLiteStorage(name)
	if err != nil {
		_ = os.Remove(name)
		return "", err
	}
	if err := db.SaveRecords(context.Background(), dimension, id, records); err != nil {
		_ = db.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := db.Close(); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to close metadata file: %w", err)
	}
	return name, nil
}

// Restore replaces the index contents with the snapshot in dir. It returns
// types.ErrSnapshotNotFound when dir holds neither file and
// types.ErrCorruptSnapshot for any inconsistency. On error the index is
// left unchanged.
func (idx *Index) Restore(dir string) error {
	vecPath := filepath.Join(dir, VectorsFile)
	metaPath := filepath.Join(dir, MetadataFile)

	vecExists, err := fileExists(vecPath)
	if err != nil {
		return err
	}
	metaExists, err := fileExists(metaPath)
	if err != nil {
		return err
	}

	switch {
	case !vecExists && !metaExists:
		return fmt.Errorf("%w: %s", types.ErrSnapshotNotFound, dir)
	case !vecExists:
		return fmt.Errorf("%w: %s missing", types.ErrCorruptSnapshot, VectorsFile)
	case !metaExists:
		return fmt.Errorf("%w: %s missing", types.ErrCorruptSnapshot, MetadataFile)
	}

	id, vectors, err := idx.readVectors(vecPath)
	if err != nil {
		return err
	}

	records, err := readRecords(metaPath, idx.dimension, id, len(vectors))
	if err != nil {
		return err
	}

	idx.replace(vectors, records)
	return nil
}

func (idx *Index) readVectors(path string) (int64, [][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open vectors file: %w", err)
	}
	defer f.Close()

	return storage.ReadVectors(f, idx.dimension)
}

func readRecords(path string, dimension int, id int64, count int) ([]types.DocumentRecord, error) {
	ctx := context.Background()

	db, err := storage.OpenSQLiteStorage(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
	}
	defer db.Close()

	info, err := db.SnapshotInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
	}
	if info.Dimension != dimension {
		return nil, fmt.Errorf("%w: metadata dimension %d, vectors dimension %d", types.ErrCorruptSnapshot, info.Dimension, dimension)
	}
	if info.SnapshotID != id {
		return nil, fmt.Errorf("%w: metadata belongs to snapshot %d, vectors to %d", types.ErrCorruptSnapshot, info.SnapshotID, id)
	}

	records, err := db.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
	}
	if len(records) != count || info.DocumentCount != count {
		return nil, fmt.Errorf("%w: %d vectors, %d records", types.ErrCorruptSnapshot, count, len(records))
	}
	for i, r := range records {
		if r.ID != i {
			return nil, fmt.Errorf("%w: record %d has id %d", types.ErrCorruptSnapshot, i, r.ID)
		}
	}
	return records, nil
}

func fileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}
