// Package blockdev provides read-only byte access to the raw block device
// or image file a pool lives on.
package blockdev

import (
	"fmt"
	"io"
	"os"
)

// SectorSize is the fixed sector size assumed by the on-disk format.
const SectorSize = 512

// Reader is a read-only handle on a block device or regular file. It never
// writes to the underlying path.
type Reader struct {
	file *os.File
	size int64
}

// Open opens path for reading and determines its length. For block devices
// whose Stat().Size() reports zero, the size is recovered by seeking to the
// end.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open device: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("blockdev: stat device: %w", err)
	}

	size := stat.Size()
	if size == 0 {
		size, err = file.Seek(0, io.SeekEnd)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("blockdev: determine device size: %w", err)
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, fmt.Errorf("blockdev: rewind device: %w", err)
		}
	}

	return &Reader{file: file, size: size}, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Size returns the device length in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Read reads size bytes starting at offset. A negative offset is measured
// from the end of the device, matching seek-from-end semantics: offset -512
// reads the final sector.
func (r *Reader) Read(offset int64, size int64) ([]byte, error) {
	normalized := r.Normalize(offset)
	if normalized < 0 || normalized > r.size {
		return nil, fmt.Errorf("blockdev: offset %d out of range for device of size %d", offset, r.size)
	}

	buf := make([]byte, size)
	n, err := r.file.ReadAt(buf, normalized)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("blockdev: read %d bytes at %d: %w", size, normalized, err)
	}
	return buf[:n], nil
}

// Normalize converts a possibly-negative offset into an absolute byte
// offset from the start of the device.
func (r *Reader) Normalize(offset int64) int64 {
	if offset < 0 {
		return r.size + offset
	}
	return offset
}

// ReadFunc is the shape of Reader.Read, factored out so a ReadFunc can be
// wrapped (e.g. by a sector tracker) without holding a concrete *Reader.
type ReadFunc func(offset int64, size int64) ([]byte, error)
