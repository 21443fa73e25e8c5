// Package zfswriter persists recovered file contents to an output
// directory, restoring source timestamps, per spec.md §6's writer
// contract. It is a thin external collaborator, not part of the
// recovery core.
package zfswriter

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"zfinds/internal/collector"
	"zfinds/internal/poolfmt"
)

// Writer persists Collector entries to a destination directory.
type Writer struct {
	dest string
}

// New validates dest (creating it if absent; erroring if it exists and is
// not a directory) and returns a Writer bound to it.
func New(dest string) (*Writer, error) {
	info, err := os.Stat(dest)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return nil, fmt.Errorf("zfswriter: create destination %s: %w", dest, err)
		}
	case err != nil:
		return nil, fmt.Errorf("zfswriter: stat destination %s: %w", dest, err)
	case !info.IsDir():
		return nil, fmt.Errorf("zfswriter: destination %s exists and is not a directory", dest)
	}

	return &Writer{dest: dest}, nil
}

// WriteUber writes every entry from a Collector using the uber naming
// scheme: <path-joined-by-underscore>-<mtime>-uber.
func (w *Writer) WriteUber(entries []collector.Entry) error {
	for _, e := range entries {
		fi, ok := e.(*poolfmt.FileInfo)
		if !ok || fi.Name == nil {
			continue // an uber entry with no recovered name cannot be named this way
		}
		if err := w.writeNamed(fi, fmt.Sprintf("%s-%d-uber", *fi.Name, fi.File.ModifyTime.Unix())); err != nil {
			return err
		}
	}
	return nil
}

// WriteBrute writes every entry from a Collector using the brute naming
// scheme: <5-digit-sequence>-<mtime>-brute, sequence starting at 1.
func (w *Writer) WriteBrute(entries []collector.Entry) error {
	seq := 1
	for _, e := range entries {
		fi, ok := e.(*poolfmt.FileInfo)
		if !ok {
			continue
		}
		name := fmt.Sprintf("%05d-%d-brute", seq, fi.File.ModifyTime.Unix())
		if err := w.writeNamed(fi, name); err != nil {
			return err
		}
		seq++
	}
	return nil
}

func (w *Writer) writeNamed(fi *poolfmt.FileInfo, name string) error {
	data, err := fi.Read()
	if err != nil {
		return fmt.Errorf("zfswriter: read %s: %w", name, err)
	}

	path := filepath.Join(w.dest, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("zfswriter: write %s: %w", path, err)
	}

	atime := fi.File.AccessTime
	mtime := fi.File.ModifyTime
	if atime.IsZero() {
		atime = time.Now()
	}
	if mtime.IsZero() {
		mtime = time.Now()
	}
	if err := os.Chtimes(path, atime, mtime); err != nil {
		return fmt.Errorf("zfswriter: restore timestamps on %s: %w", path, err)
	}

	return nil
}
