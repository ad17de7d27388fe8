package storage

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/dshills/docsearch/pkg/types"
)

// vectorMagic identifies a vector block file
var vectorMagic = [4]byte{'D', 'S', 'V', 'B'}

// maxDecoderWindow caps the zstd window a vector file may request
const maxDecoderWindow = 64 << 20

// vectorHeader precedes the compressed payload. All fields are little-endian.
// SnapshotID pairs the block with the metadata file written alongside it.
type vectorHeader struct {
	Magic      [4]byte
	Dimension  uint32
	Count      uint32
	SnapshotID int64
}

// WriteVectors writes a header followed by the zstd-compressed little-endian
// float32 block. Every vector must have the given dimension.
func WriteVectors(w io.Writer, dimension int, snapshotID int64, vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != dimension {
			return fmt.Errorf("vector %d: %w: expected %d, got %d", i, types.ErrDimensionMismatch, dimension, len(v))
		}
	}

	header := vectorHeader{
		Magic:      vectorMagic,
		Dimension:  uint32(dimension),
		Count:      uint32(len(vectors)),
		SnapshotID: snapshotID,
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("failed to write vector header: %w", err)
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("failed to create compressor: %w", err)
	}

	bw := bufio.NewWriter(enc)
	for _, v := range vectors {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			_ = enc.Close()
			return fmt.Errorf("failed to write vectors: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("failed to flush vectors: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finish compression: %w", err)
	}
	return nil
}

// ReadVectors reads a block written by WriteVectors and returns its snapshot
// ID. The header must declare the expected dimension; it is checked before
// anything is allocated. Bad magic, a foreign dimension, truncated or
// trailing data are reported as types.ErrCorruptSnapshot.
func ReadVectors(r io.Reader, dimension int) (int64, [][]float32, error) {
	if dimension <= 0 {
		return 0, nil, types.ErrInvalidDimension
	}

	var header vectorHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return 0, nil, fmt.Errorf("%w: vector header: %v", types.ErrCorruptSnapshot, err)
	}
	if header.Magic != vectorMagic {
		return 0, nil, fmt.Errorf("%w: bad vector magic %q", types.ErrCorruptSnapshot, header.Magic[:])
	}
	if int64(header.Dimension) != int64(dimension) {
		return 0, nil, fmt.Errorf("%w: snapshot dimension %d, index dimension %d",
			types.ErrCorruptSnapshot, header.Dimension, dimension)
	}

	dec, err := zstd.NewReader(r, zstd.WithDecoderMaxWindow(maxDecoderWindow), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", types.ErrCorruptSnapshot, err)
	}
	defer dec.Close()

	// Vectors are allocated as they are read so a forged count cannot
	// force a huge allocation up front.
	vectors := make([][]float32, 0, min(int(header.Count), 1024))
	for i := 0; i < int(header.Count); i++ {
		v := make([]float32, dimension)
		if err := binary.Read(dec, binary.LittleEndian, v); err != nil {
			return 0, nil, fmt.Errorf("%w: vector %d: %v", types.ErrCorruptSnapshot, i, err)
		}
		vectors = append(vectors, v)
	}

	var extra [1]byte
	if n, err := dec.Read(extra[:]); n > 0 || (err != nil && !errors.Is(err, io.EOF)) {
		return 0, nil, fmt.Errorf("%w: trailing vector data", types.ErrCorruptSnapshot)
	}

	return header.SnapshotID, vectors, nil
}
