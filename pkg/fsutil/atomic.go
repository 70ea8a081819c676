// Package fsutil provides durable filesystem primitives. Every mutation the
// pipeline performs on the target tree or the change log goes through
// AtomicWrite so a crash can never leave a half-written file behind.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWrite writes data to a uniquely named temporary file in the target's
// directory, fsyncs it, renames it onto path, then fsyncs the directory so
// the rename itself is durable. On any failure before the rename the
// temporary file is removed and the target is left untouched. A
// directory-fsync failure after the rename still returns an error even
// though the target already holds the new content: the replace is complete,
// only its durability across a crash is in doubt.
//
// The temp file is created in the same directory as the target, never a
// different filesystem, so the final rename is a single atomic replace.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".selfgate-tmp-*")
	if err != nil {
		return fmt.Errorf("atomic write create tmp: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up on failure
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	// os.File.Write loops internally on short writes and EINTR.
	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("atomic write: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("atomic write chmod: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("atomic write fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("atomic write close: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomic write rename: %w", err)
	}
	if err := FsyncDir(dir); err != nil {
		return fmt.Errorf("atomic write fsync dir: %w", err)
	}

	success = true
	return nil
}

// WriteFileDurable creates the target's parent directories if absent and
// then performs an AtomicWrite. This is the caller-facing form used by the
// pipeline's final write stage.
func WriteFileDurable(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("durable write mkdir: %w", err)
	}
	return AtomicWrite(path, data, perm)
}

// FsyncDir fsyncs a directory to ensure rename visibility is durable.
func FsyncDir(dirPath string) error {
	d, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("fsync dir open: %w", err)
	}
	defer d.Close()
	return d.Sync()
}
