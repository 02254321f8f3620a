package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// AtomicFile buffers writes in a sibling temp file that only replaces the
// final path on Commit. Readers never observe a half-written file.
type AtomicFile struct {
	*os.File
	final string
	done  bool
}

// CreateAtomic opens path+suffix for writing, truncating any leftover from an
// interrupted run.
func CreateAtomic(path, suffix string) (*AtomicFile, error) {
	if suffix == "" {
		return nil, errors.New("atomic file suffix required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create parent directory: %w", err)
	}
	f, err := os.OpenFile(path+suffix, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &AtomicFile{File: f, final: path}, nil
}

// Commit closes the temp file and renames it onto the final path.
func (f *AtomicFile) Commit() error {
	if f.done {
		return errors.New("atomic file already finished")
	}
	f.done = true
	if err := f.File.Close(); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	if err := os.Rename(f.Name(), f.final); err != nil {
		_ = os.Remove(f.Name())
		return err
	}
	return nil
}

// Abort closes and removes the temp file. It is a no-op after Commit, so it
// can be deferred unconditionally.
func (f *AtomicFile) Abort() {
	if f.done {
		return
	}
	f.done = true
	_ = f.File.Close()
	_ = os.Remove(f.Name())
}

// CopyToFile streams r into path through a suffix temp file and returns the
// number of bytes written.
func CopyToFile(path, suffix string, r io.Reader) (int64, error) {
	out, err := CreateAtomic(path, suffix)
	if err != nil {
		return 0, err
	}
	defer out.Abort()

	written, err := io.Copy(out, r)
	if err != nil {
		return written, err
	}
	if err := out.Commit(); err != nil {
		return written, err
	}
	return written, nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
